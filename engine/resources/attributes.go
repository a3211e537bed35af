package resources

import (
	"fmt"
	"strconv"
)

/** @brief The type tag of an attribute value. */
type AttributeKind int

const (
	AttributeKindString AttributeKind = iota
	AttributeKindInt
	AttributeKindFloat
	AttributeKindBool
	AttributeKindVector
	AttributeKindStringList
)

var attributeKindNames = map[AttributeKind]string{
	AttributeKindString:     "string",
	AttributeKindInt:        "int",
	AttributeKindFloat:      "float",
	AttributeKindBool:       "bool",
	AttributeKindVector:     "vector",
	AttributeKindStringList: "string_list",
}

func (k AttributeKind) String() string {
	if name, ok := attributeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k AttributeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AttributeKind) UnmarshalText(text []byte) error {
	for kind, name := range attributeKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown attribute kind `%s`", text)
}

/**
 * @brief Tagged union holding one attribute value. Only the field matching
 * Kind is meaningful.
 */
type AttributeValue struct {
	Kind   AttributeKind `json:"kind"`
	String string        `json:"string,omitempty"`
	Int    int64         `json:"int,omitempty"`
	Float  float64       `json:"float,omitempty"`
	Bool   bool          `json:"bool,omitempty"`
	Vector []float32     `json:"vector,omitempty"`
	List   []string      `json:"list,omitempty"`
}

type Attribute struct {
	Name     string         `json:"name"`
	Value    AttributeValue `json:"value"`
	ReadOnly bool           `json:"read_only,omitempty"`
}

func StringValue(v string) AttributeValue {
	return AttributeValue{Kind: AttributeKindString, String: v}
}

func IntValue(v int64) AttributeValue {
	return AttributeValue{Kind: AttributeKindInt, Int: v}
}

func FloatValue(v float64) AttributeValue {
	return AttributeValue{Kind: AttributeKindFloat, Float: v}
}

func BoolValue(v bool) AttributeValue {
	return AttributeValue{Kind: AttributeKindBool, Bool: v}
}

func VectorValue(v ...float32) AttributeValue {
	return AttributeValue{Kind: AttributeKindVector, Vector: v}
}

func StringListValue(v []string) AttributeValue {
	return AttributeValue{Kind: AttributeKindStringList, List: v}
}

// Text renders the value the way a macro or uniform default would be written.
func (v AttributeValue) Text() string {
	switch v.Kind {
	case AttributeKindString:
		return v.String
	case AttributeKindInt:
		return strconv.FormatInt(v.Int, 10)
	case AttributeKindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case AttributeKindBool:
		return strconv.FormatBool(v.Bool)
	case AttributeKindVector:
		s := ""
		for i, f := range v.Vector {
			if i > 0 {
				s += " "
			}
			s += strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
		return s
	case AttributeKindStringList:
		return fmt.Sprint(v.List)
	}
	return ""
}

// ListItem returns the element at index of a string list value, or the scalar text.
func (v AttributeValue) ListItem(index int) string {
	if v.Kind == AttributeKindStringList {
		if index >= 0 && index < len(v.List) {
			return v.List[index]
		}
		return ""
	}
	return v.Text()
}
