package ops

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// If shapes already match, clone to avoid aliasing issues
	// (prevents inplace operations from modifying shared gradients)
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Handle scalar target (empty shape)
	if len(targetShape) == 0 {
		return sumAll(grad)
	}

	// NumPy broadcasting aligns shapes from the right: if the target has
	// fewer dimensions, sum the leading dimensions first.
	gradDims := len(gradShape)
	targetDims := len(targetShape)

	if targetDims < gradDims {
		dimsToSum := gradDims - targetDims
		result := grad
		for i := 0; i < dimsToSum; i++ {
			result = sumAlongDimension(result, 0)
		}
		grad = result
		gradShape = grad.Shape()
	}

	// Now sum along dimensions where target is 1
	result := grad
	for i := 0; i < targetDims; i++ {
		if targetShape[i] == 1 && gradShape[i] > 1 {
			result = sumAlongDimension(result, i)
		}
	}

	// Reshape if necessary to match target shape exactly
	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// sumAll sums all elements of a tensor to a scalar.
func sumAll(t *tensor.RawTensor) *tensor.RawTensor {
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("sumAll: unsupported dtype %s", t.DType()))
	}

	result, err := tensor.NewRaw(tensor.Shape{}, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAll: failed to create result: %v", err))
	}

	var sum float32
	for _, v := range t.AsFloat32() {
		sum += v
	}
	result.AsFloat32()[0] = sum

	return result
}

// sumAlongDimension sums a tensor along the specified dimension,
// keeping that dimension with size 1.
func sumAlongDimension(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("sumAlongDimension: unsupported dtype %s", t.DType()))
	}

	outShape := shape.Clone()
	outShape[dim] = 1

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: failed to create result: %v", err))
	}

	sumFloat32AlongDimension(t.AsFloat32(), result.AsFloat32(), shape, dim)

	return result
}

// sumFloat32AlongDimension sums float32 data along a dimension.
func sumFloat32AlongDimension(data, result []float32, shape tensor.Shape, dim int) {
	for i := range result {
		result[i] = 0
	}

	strides := shape.ComputeStrides()
	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	numElements := shape.NumElements()
	for i := 0; i < numElements; i++ {
		// Map the flat index to the reduced tensor (coordinate along dim
		// collapses to 0).
		reducedIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]
			if d != dim {
				reducedIdx += coord * outStrides[d]
			}
		}

		result[reducedIdx] += data[i]
	}
}

// negateGradient returns -grad.
func negateGradient(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	zeros := fullLike(grad, 0)
	return backend.Sub(zeros, grad)
}

// fullLike creates a float32 tensor with the same shape as t, filled with value.
func fullLike(t *tensor.RawTensor, value float32) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), tensor.Float32, t.Device())
	if err != nil {
		panic(fmt.Sprintf("fullLike: failed to create tensor: %v", err))
	}

	data := result.AsFloat32()
	for i := range data {
		data[i] = value
	}

	return result
}

// unsqueezeDim inserts a size-1 dimension at dim, producing a tensor whose
// rank matches targetShape. Used by reduction backward passes when the
// forward used keepDim=false.
func unsqueezeDim(t *tensor.RawTensor, dim int, targetShape tensor.Shape) *tensor.RawTensor {
	ndim := len(targetShape)
	if dim < 0 {
		dim = ndim + dim
	}

	newShape := make(tensor.Shape, 0, len(t.Shape())+1)
	newShape = append(newShape, t.Shape()[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, t.Shape()[dim:]...)

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("unsqueezeDim: failed to create result: %v", err))
	}

	copy(result.AsFloat32(), t.AsFloat32())

	return result
}

// broadcastTo broadcasts a tensor to match the target shape.
func broadcastTo(t *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	if t.Shape().Equal(targetShape) {
		return t.Clone()
	}

	result, err := tensor.NewRaw(targetShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("broadcastTo: failed to create result: %v", err))
	}

	broadcastFloat32(t.AsFloat32(), result.AsFloat32(), t.Shape(), targetShape)

	return result
}

// broadcastFloat32 broadcasts float32 data to the target shape.
func broadcastFloat32(src, dst []float32, srcShape, dstShape tensor.Shape) {
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dstShape.ComputeStrides()
	numElements := dstShape.NumElements()

	for i := 0; i < numElements; i++ {
		srcIdx := 0
		temp := i
		for d := 0; d < len(dstShape); d++ {
			coord := temp / dstStrides[d]
			temp %= dstStrides[d]

			// Map to source dimension (shapes align from the right)
			srcDim := d - (len(dstShape) - len(srcShape))
			if srcDim >= 0 && srcDim < len(srcShape) {
				if srcShape[srcDim] == 1 {
					coord = 0
				}
				srcIdx += coord * srcStrides[srcDim]
			}
		}

		dst[i] = src[srcIdx]
	}
}
