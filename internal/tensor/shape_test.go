package tensor

import "testing"

func TestShapeNumElements(t *testing.T) {
	cases := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{4}, 4},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
	}
	for _, tc := range cases {
		if got := tc.shape.NumElements(); got != tc.want {
			t.Errorf("%v.NumElements() = %d, want %d", tc.shape, got, tc.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{2, -1}).Validate(); err == nil {
		t.Error("negative dimension accepted")
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("zero dimension accepted")
	}
}

func TestShapeEqual(t *testing.T) {
	if !(Shape{2, 3}).Equal(Shape{2, 3}) {
		t.Error("equal shapes reported unequal")
	}
	if (Shape{2, 3}).Equal(Shape{3, 2}) {
		t.Error("unequal shapes reported equal")
	}
	if (Shape{2, 3}).Equal(Shape{2, 3, 1}) {
		t.Error("different ranks reported equal")
	}
}

func TestComputeStrides(t *testing.T) {
	strides := (Shape{2, 3, 4}).ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Errorf("strides = %v, want %v", strides, want)
			break
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	cases := []struct {
		a, b, want Shape
	}{
		{Shape{2, 3}, Shape{2, 3}, Shape{2, 3}},
		{Shape{2, 3}, Shape{1, 3}, Shape{2, 3}},
		{Shape{2, 3}, Shape{3}, Shape{2, 3}},
		{Shape{4, 1, 5}, Shape{1, 3, 5}, Shape{4, 3, 5}},
		{Shape{2, 5, 7}, Shape{2, 1, 7}, Shape{2, 5, 7}},
	}
	for _, tc := range cases {
		got, _, err := BroadcastShapes(tc.a, tc.b)
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v) failed: %v", tc.a, tc.b, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("BroadcastShapes(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestBroadcastShapes_StretchFlag(t *testing.T) {
	if _, stretched, _ := BroadcastShapes(Shape{2, 3}, Shape{2, 3}); stretched {
		t.Error("matching shapes reported as needing stretching")
	}
	if _, stretched, _ := BroadcastShapes(Shape{2, 3}, Shape{1, 3}); !stretched {
		t.Error("broadcast pair reported as already matching")
	}
}

func TestBroadcastShapes_Incompatible(t *testing.T) {
	if _, _, err := BroadcastShapes(Shape{2, 3}, Shape{2, 4}); err == nil {
		t.Error("incompatible shapes accepted")
	}
}
