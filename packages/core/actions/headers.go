package actions

import (
	"strings"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
)

const fieldPadding = " \t"

// Headers keeps every field in declaration order. Repeated names are not
// merged.
func Headers(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("headers", raw, -1)
	if err != nil {
		return nil, err
	}
	fields := make([]*cst.Node, 0, len(items))
	for _, item := range items {
		f, err := asNode("headers", item, cst.KindHeaderField)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return cst.NewHeaders(locationOf(c), fields...), nil
}

// HeaderField expects [fieldName, ":", ws?, fieldValue, lineEnd].
func HeaderField(c *peg.Current, raw any) (any, error) {
	items, err := asSlice("headerField", raw, 5)
	if err != nil {
		return nil, err
	}
	name, err := asNode("headerField", items[0], cst.KindFieldName)
	if err != nil {
		return nil, err
	}
	value, err := asNode("headerField", items[3], cst.KindFieldValue)
	if err != nil {
		return nil, err
	}
	return cst.NewHeaderField(locationOf(c), name, value), nil
}

func FieldName(c *peg.Current, raw any) (any, error) {
	s, err := join("fieldName", raw)
	if err != nil {
		return nil, err
	}
	return cst.NewFieldName(locationOf(c), s), nil
}

// FieldValue rejects a value that still starts or ends with a space or tab
// once the single separator after the colon has been consumed.
func FieldValue(c *peg.Current, raw any) (any, error) {
	s, err := join("fieldValue", raw)
	if err != nil {
		return nil, err
	}
	if strings.Trim(s, fieldPadding) != s {
		return peg.Reject, nil
	}
	return cst.NewFieldValue(locationOf(c), s), nil
}
