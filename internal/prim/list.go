package prim

import (
	"math/rand/v2"

	"tickvm/internal/cast"
	"tickvm/internal/object"
)

// ListIndex turns a 1-based or symbolic index ("last", "random", "*") into a
// 0-based index, or -1 when it falls outside [1, length].
func ListIndex(index object.Value, length int) int {
	var n float64
	switch x := index.(type) {
	case float64:
		n = x
	case string:
		switch x {
		case "last":
			if length > 0 {
				return length - 1
			}
			return -1
		case "random", "*":
			if length > 0 {
				return rand.IntN(length)
			}
			return -1
		}
		n = cast.ToNumber(x)
	default:
		n = cast.ToNumber(x)
	}

	i := int(cast.Int32(n))
	if i < 1 || i > length {
		return -1
	}
	return i - 1
}

// ListGet returns "" for an invalid index.
func ListGet(list *object.List, idx object.Value) object.Value {
	i := ListIndex(idx, len(list.Value))
	if i == -1 {
		return ""
	}
	return list.Value[i]
}

func ListReplace(list *object.List, idx, value object.Value) {
	i := ListIndex(idx, len(list.Value))
	if i == -1 {
		return
	}
	list.Value[i] = value
	list.MarkStale()
}

// ListInsert accepts one past the end so that "last" style inserts append.
func ListInsert(list *object.List, idx, value object.Value) {
	i := ListIndex(idx, len(list.Value)+1)
	if i == -1 {
		return
	}
	list.Value = append(list.Value, nil)
	copy(list.Value[i+1:], list.Value[i:])
	list.Value[i] = value
	list.MarkStale()
}

// ListDelete removes one item, or everything for "all".
func ListDelete(list *object.List, idx object.Value) {
	if s, ok := idx.(string); ok && s == "all" {
		list.Value = []object.Value{}
		list.MarkStale()
		return
	}
	i := ListIndex(idx, len(list.Value))
	if i == -1 {
		return
	}
	list.Value = append(list.Value[:i], list.Value[i+1:]...)
	list.MarkStale()
}

func ListContains(list *object.List, item object.Value) bool {
	return ListIndexOf(list, item) != 0
}

// ListIndexOf returns the 1-based position of item, or 0.
func ListIndexOf(list *object.List, item object.Value) float64 {
	for i, v := range list.Value {
		if CompareEqual(v, item) {
			return float64(i + 1)
		}
	}
	return 0
}

// ListContents joins with no separator when every item is a single
// character, otherwise with single spaces.
func ListContents(list *object.List) string {
	for _, item := range list.Value {
		if cast.Length(cast.String(item)) != 1 {
			return cast.Join(list.Value, " ")
		}
	}
	return cast.Join(list.Value, "")
}

// ListAppend adds value at the end.
func ListAppend(list *object.List, value object.Value) {
	list.Value = append(list.Value, value)
	list.MarkStale()
}

// ListLength is the item count as a script number.
func ListLength(list *object.List) float64 {
	return float64(len(list.Value))
}
