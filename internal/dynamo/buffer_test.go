package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestBufferLayout(t *testing.T) {
	b, err := NewBuffer(3, 2)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	b.Set(1, 2, 1, 7.5)
	if got := b.Data()[1+2*(2+3*1)]; got != 7.5 {
		t.Errorf("storage order wrong: got %f", got)
	}
	if b.At(1, 2, 1) != 7.5 {
		t.Errorf("At(1,2,1) = %f", b.At(1, 2, 1))
	}

	st := b.State(2, 1)
	if st[0] != 0 || st[1] != 7.5 {
		t.Errorf("State(2,1) = %v", st)
	}

	if len(b.Trial(1)) != 6 {
		t.Errorf("trial block has %d values, want 6", len(b.Trial(1)))
	}

	c, s, n := b.Shape()
	if c != 2 || s != 3 || n != 2 {
		t.Errorf("Shape() = (%d,%d,%d)", c, s, n)
	}
}

func TestNewBufferErrors(t *testing.T) {
	if _, err := NewBuffer(-1, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := FromData(make([]float64, 5), 2, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := FromData(make([]float64, 8), 2, 2); err != nil {
		t.Errorf("FromData: %v", err)
	}
	if _, err := FromData(nil, 1<<32, 1<<31); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for overflowing shape, got %v", err)
	}
}

func TestDataLen(t *testing.T) {
	tests := []struct {
		steps, trials int
		want          int
		wantErr       bool
	}{
		{3, 4, 24, false},
		{0, 1 << 40, 0, false},
		{-1, 2, 0, true},
		{1 << 32, 1 << 31, 0, true},
		{math.MaxInt / 2, 2, 0, true},
	}
	for _, tt := range tests {
		got, err := DataLen(tt.steps, tt.trials)
		if (err != nil) != tt.wantErr {
			t.Errorf("DataLen(%d, %d) error = %v", tt.steps, tt.trials, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DataLen(%d, %d) = %d, want %d", tt.steps, tt.trials, got, tt.want)
		}
	}
}

func TestViewBounds(t *testing.T) {
	b, _ := NewBuffer(4, 5)

	tests := []struct {
		r       Range
		wantErr bool
	}{
		{Range{0, 5}, false},
		{Range{2, 2}, false},
		{Range{-1, 2}, true},
		{Range{3, 6}, true},
		{Range{4, 3}, true},
	}

	for _, tt := range tests {
		_, err := b.View(tt.r)
		if tt.wantErr && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("View(%s): expected ErrOutOfRange, got %v", tt.r, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("View(%s): %v", tt.r, err)
		}
	}
}

func TestViewIsolation(t *testing.T) {
	b, _ := NewBuffer(2, 4)
	v, _ := b.View(Range{1, 3})

	blk := v.Trial(2)
	blk[0] = 42
	if b.At(0, 0, 2) != 42 {
		t.Error("view does not alias buffer")
	}

	// full slice expression caps the block so append cannot spill over
	if cap(blk) != len(blk) {
		t.Errorf("trial block cap %d exceeds len %d", cap(blk), len(blk))
	}
}

func TestSplit(t *testing.T) {
	b, _ := NewBuffer(3, 10)

	views, err := b.Split([]Range{{5, 10}, {0, 5}})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if views[0].Range() != (Range{5, 10}) || views[1].Range() != (Range{0, 5}) {
		t.Errorf("views out of order: %s %s", views[0].Range(), views[1].Range())
	}

	if _, err := b.Split([]Range{{0, 6}, {5, 10}}); !errors.Is(err, ErrOverlap) {
		t.Errorf("expected ErrOverlap, got %v", err)
	}
	if _, err := b.Split([]Range{{0, 5}, {5, 11}}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := b.Split([]Range{{0, 0}, {0, 10}}); err != nil {
		t.Errorf("empty range should not overlap: %v", err)
	}
}

func TestRange(t *testing.T) {
	r := Range{2, 5}
	if r.Len() != 3 || !r.Contains(2) || r.Contains(5) {
		t.Errorf("range semantics wrong for %s", r)
	}
	if (Range{5, 2}).Len() != 0 {
		t.Error("inverted range should be empty")
	}
	if r.String() != "[2,5)" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestTaskError(t *testing.T) {
	err := &TaskError{Task: 3, Range: Range{6, 9}, Wrapped: ErrShapeMismatch}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("TaskError should unwrap")
	}
	if err.Error() != "task 3 [6,9): dynamo: shape mismatch" {
		t.Errorf("Error() = %q", err.Error())
	}
}
