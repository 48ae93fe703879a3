package infer

import (
	"strconv"
	"strings"
)

// Arr is an array type. Its element type lives in the "<i>" property; a
// tuple additionally keeps one property per position.
type Arr struct {
	Obj

	// Tuple is the number of positional elements, or 0 for a plain array.
	Tuple int
}

// NewArr creates an array whose elements receive content, which may be
// nil.
func (cx *Context) NewArr(content Value) *Arr {
	arr := &Arr{}
	arr.init(cx, arr, cx.ArrayProto, "")
	elems := arr.DefProp(IndexProp, nil)
	if content != nil {
		content.Propagate(elems, 0)
	}
	return arr
}

// NewTuple creates a fixed-length array. Each position also flows into
// the element type.
func (cx *Context) NewTuple(content []Value) *Arr {
	arr := &Arr{}
	arr.init(cx, arr, cx.ArrayProto, "")
	arr.DefProp(IndexProp, nil)
	arr.fillTuple(content)
	return arr
}

func (arr *Arr) fillTuple(content []Value) {
	arr.Tuple = len(content)
	elems := arr.DefProp(IndexProp, nil)
	for i, v := range content {
		prop := arr.DefProp(strconv.Itoa(i), nil)
		v.Propagate(prop, 0)
		prop.Propagate(elems, 0)
	}
}

func (arr *Arr) normalizeIntegerProp(name string) string {
	if n, err := strconv.Atoi(name); err == nil && n < arr.Tuple {
		return name
	}
	return IndexProp
}

// Elem is the AVal holding the element type.
func (arr *Arr) Elem() Value {
	return arr.GetProp(IndexProp)
}

func (arr *Arr) describe(maxDepth int, _ Value) string {
	if maxDepth <= -3 {
		return "[?]"
	}
	if arr.Tuple == 0 {
		return "[" + describeValue(arr.GetProp(IndexProp), maxDepth-1, arr) + "]"
	}
	parts := make([]string, arr.Tuple)
	same := true
	for i := range parts {
		parts[i] = describeValue(arr.GetProp(strconv.Itoa(i)), maxDepth-1, arr)
		if parts[i] != parts[0] {
			same = false
		}
	}
	if same {
		return "[" + parts[0] + "]"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (arr *Arr) typeName(n *Namer) string {
	if arr.Tuple == 0 {
		return "[" + n.Name(arr.GetProp(IndexProp)) + "]"
	}
	parts := make([]string, arr.Tuple)
	for i := range parts {
		parts[i] = n.Name(arr.GetProp(strconv.Itoa(i)))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (arr *Arr) String() string {
	return Describe(arr, 0)
}
