package record

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/strfmt"
)

// Errors maps attribute names to the messages of one validation pass.
// Attributes keep the order in which they first received a message.
type Errors struct {
	order    []string
	messages map[string][]string
}

// Add records a message against an attribute.
func (e *Errors) Add(attr, message string) {
	if e.messages == nil {
		e.messages = make(map[string][]string)
	}
	if _, ok := e.messages[attr]; !ok {
		e.order = append(e.order, attr)
	}
	e.messages[attr] = append(e.messages[attr], message)
}

// On returns the messages recorded against attr.
func (e *Errors) On(attr string) []string {
	return slices.Clone(e.messages[attr])
}

// Empty reports whether no message was recorded.
func (e *Errors) Empty() bool { return len(e.order) == 0 }

// Len returns the total number of messages.
func (e *Errors) Len() int {
	n := 0
	for _, msgs := range e.messages {
		n += len(msgs)
	}
	return n
}

// Attributes returns the attributes with messages, in first-seen order.
func (e *Errors) Attributes() []string { return slices.Clone(e.order) }

// Map returns a copy of every message keyed by attribute.
func (e *Errors) Map() map[string][]string {
	out := make(map[string][]string, len(e.messages))
	for attr, msgs := range e.messages {
		out[attr] = slices.Clone(msgs)
	}
	return out
}

// FullMessages prefixes each message with its humanized attribute name,
// e.g. "First name can't be blank".
func (e *Errors) FullMessages() []string {
	var out []string
	for _, attr := range e.order {
		for _, msg := range e.messages[attr] {
			out = append(out, humanize(attr)+" "+msg)
		}
	}
	return out
}

// Clear removes every message.
func (e *Errors) Clear() {
	e.order = nil
	e.messages = nil
}

// humanize turns "first_name" into "First name".
func humanize(attr string) string {
	s := strings.TrimSuffix(attr, "_id")
	s = strings.ReplaceAll(s, "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Values is a read-only view of a record's candidate attributes handed to
// validation rules.
type Values struct {
	r *Record
}

// Get returns the named attribute, nil for unset or unknown names.
func (v Values) Get(name string) any {
	i, ok := v.r.entity.index[name]
	if !ok {
		return nil
	}
	return cloneValue(v.r.values[i])
}

// Has reports whether the entity declares the named attribute.
func (v Values) Has(name string) bool {
	_, ok := v.r.entity.index[name]
	return ok
}

// Persisted reports whether the record being validated is already stored.
func (v Values) Persisted() bool { return v.r.persisted }

// Rule inspects candidate values and adds messages for the attributes it
// finds invalid. Rules must not change the record.
type Rule func(v Values, errs *Errors)

// Valid runs every rule registered on the entity type against the record,
// rebuilding Errors from scratch, and reports whether no rule objected.
func (r *Record) Valid() bool {
	r.errors.Clear()
	view := Values{r: r}
	for _, rule := range r.entity.rules {
		rule(view, &r.errors)
	}
	return r.errors.Empty()
}

// Errors returns the messages of the latest validation pass.
func (r *Record) Errors() *Errors { return &r.errors }

// Presence requires each attribute to hold a value; blank text and empty
// blobs count as missing.
func Presence(attrs ...string) Rule {
	return func(v Values, errs *Errors) {
		for _, attr := range attrs {
			if blank(v.Get(attr)) {
				errs.Add(attr, "can't be blank")
			}
		}
	}
}

func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []byte:
		return len(x) == 0
	default:
		return false
	}
}

// Length bounds the length in characters of a text attribute (bytes for a
// blob). A bound of zero or less is not checked. NULL values are skipped.
func Length(attr string, min, max int) Rule {
	return func(v Values, errs *Errors) {
		var n int
		switch x := v.Get(attr).(type) {
		case string:
			n = utf8.RuneCountInString(x)
		case []byte:
			n = len(x)
		default:
			return
		}
		if min > 0 && n < min {
			errs.Add(attr, fmt.Sprintf("is too short (minimum is %d characters)", min))
		}
		if max > 0 && n > max {
			errs.Add(attr, fmt.Sprintf("is too long (maximum is %d characters)", max))
		}
	}
}

// Range bounds a numeric attribute, inclusive. NULL values are skipped.
func Range(attr string, min, max float64) Rule {
	return func(v Values, errs *Errors) {
		var f float64
		switch x := v.Get(attr).(type) {
		case int64:
			f = float64(x)
		case float64:
			f = x
		default:
			return
		}
		if f < min {
			errs.Add(attr, fmt.Sprintf("must be greater than or equal to %v", min))
		}
		if f > max {
			errs.Add(attr, fmt.Sprintf("must be less than or equal to %v", max))
		}
	}
}

// Inclusion restricts an attribute to a fixed set of values. Candidates are
// compared after conversion to the stored representation, so int and int64
// literals both match an integer attribute. NULL values are skipped.
func Inclusion(attr string, allowed ...any) Rule {
	return func(v Values, errs *Errors) {
		val := v.Get(attr)
		if val == nil {
			return
		}
		def, ok := v.r.entity.Attribute(attr)
		if !ok {
			return
		}
		for _, candidate := range allowed {
			c, err := conform(def, candidate)
			if err == nil && reflect.DeepEqual(c, val) {
				return
			}
		}
		errs.Add(attr, "is not included in the list")
	}
}

// Match requires a text attribute to match re. NULL values are skipped.
func Match(attr string, re *regexp.Regexp) Rule {
	return func(v Values, errs *Errors) {
		s, ok := v.Get(attr).(string)
		if !ok {
			return
		}
		if !re.MatchString(s) {
			errs.Add(attr, "is invalid")
		}
	}
}

// Format requires a text attribute to be a valid instance of a named string
// format from the strfmt registry ("email", "uuid", "uri", "hostname",
// "ipv4", "date-time", ...). It panics if the format is unknown. NULL
// values are skipped.
func Format(attr, format string) Rule {
	if !strfmt.Default.ContainsName(format) {
		panic(fmt.Sprintf("record: unknown string format %q", format))
	}
	return func(v Values, errs *Errors) {
		s, ok := v.Get(attr).(string)
		if !ok {
			return
		}
		if !strfmt.Default.Validates(format, s) {
			errs.Add(attr, "is not a valid "+format)
		}
	}
}
