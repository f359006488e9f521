package codec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// InferValue converts one text cell to a value. Cells that are empty or
// NULL after trimming become null; the rest are tried as integer, number,
// boolean and, when inferDates is set, ISO-8601 date before falling back
// to a string.
func InferValue(text string, inferDates bool) object.Object {
	s := strings.TrimSpace(text)
	if s == "" || strings.EqualFold(s, "NULL") {
		return object.NULL
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &object.Integer{Value: i}
	}
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &object.Number{Value: f}
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return object.TRUE
	case "false":
		return object.FALSE
	}
	if inferDates && isoDate.MatchString(s) {
		if t, err := dateparse.ParseAny(s); err == nil {
			return &object.Date{Value: t, Text: s}
		}
	}
	return &object.String{Value: s}
}
