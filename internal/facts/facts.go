// Package facts renders entities and relationships as the single-line
// natural-language facts Graphiti ingests, and parses them back.
//
//	ENTITY: cliente_001 is a Client. Properties: name: "Ana", initial_debt: 15000
//	cliente_001 HAD_INTERACTION int_001. Properties: channel: "call"
package facts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Property is a single key/value pair. Order is preserved when rendering.
type Property struct {
	Key   string
	Value any
}

type Properties []Property

// P is shorthand for building a Property.
func P(key string, value any) Property {
	return Property{Key: key, Value: value}
}

// Get returns the first value stored under key.
func (p Properties) Get(key string) (any, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return nil, false
}

// GetString returns the value under key when it is a string.
func (p Properties) GetString(key string) string {
	v, _ := p.Get(key)
	s, _ := v.(string)
	return s
}

// GetDecimal returns the numeric value under key, or zero.
func (p Properties) GetDecimal(key string) decimal.Decimal {
	v, _ := p.Get(key)
	d, _ := v.(decimal.Decimal)
	return d
}

type Entity struct {
	Label      string
	ID         string
	Properties Properties
}

type Relationship struct {
	Type       string
	From       string
	To         string
	Properties Properties
}

func (e Entity) Text() string {
	return fmt.Sprintf("ENTITY: %s is a %s. Properties: %s", e.ID, e.Label, e.Properties.render())
}

func (r Relationship) Text() string {
	text := fmt.Sprintf("%s %s %s", r.From, r.Type, r.To)
	if len(r.Properties) > 0 {
		text += ". Properties: " + r.Properties.render()
	}
	return text
}

func (p Properties) render() string {
	parts := make([]string, 0, len(p))
	for _, prop := range p {
		parts = append(parts, prop.Key+": "+formatValue(prop.Value))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return strconv.Quote(val.Format(time.RFC3339))
	case fmt.Stringer:
		return strconv.Quote(val.String())
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return strconv.Quote(fmt.Sprint(val))
		}
		return strconv.Quote(string(b))
	}
}

var (
	entityPattern       = regexp.MustCompile(`^ENTITY: (\S+) is a (\w+)\.(?: Properties:(.*))?$`)
	relationshipPattern = regexp.MustCompile(`^(\S+) ([A-Z][A-Z_]*) (\S+?)(?:\. Properties:(.*))?$`)
	propertyPattern     = regexp.MustCompile(`(\w+): ("(?:[^"\\]|\\.)*"|null|true|false|-?\d+(?:\.\d+)?)`)
)

// ParseEntity extracts an entity from fact text produced by Entity.Text.
func ParseEntity(text string) (Entity, bool) {
	m := entityPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Entity{}, false
	}
	return Entity{ID: m[1], Label: m[2], Properties: parseProperties(m[3])}, true
}

// ParseRelationship extracts a relationship from fact text produced by
// Relationship.Text.
func ParseRelationship(text string) (Relationship, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "ENTITY:") {
		return Relationship{}, false
	}
	m := relationshipPattern.FindStringSubmatch(text)
	if m == nil {
		return Relationship{}, false
	}
	return Relationship{From: m[1], Type: m[2], To: m[3], Properties: parseProperties(m[4])}, true
}

// parseProperties decodes numbers as decimal.Decimal, quoted values as
// strings, true/false as bool and null as nil.
func parseProperties(s string) Properties {
	props := make(Properties, 0)
	for _, m := range propertyPattern.FindAllStringSubmatch(s, -1) {
		props = append(props, Property{Key: m[1], Value: parseValue(m[2])})
	}
	return props
}

func parseValue(raw string) any {
	switch raw {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if strings.HasPrefix(raw, `"`) {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
		return strings.Trim(raw, `"`)
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return d
	}
	return raw
}
