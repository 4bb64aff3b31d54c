// Package barcode parses GS1/ASC DataMatrix payloads from pharmaceutical
// packages and extracts the embedded national product numbers.
package barcode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload is returned when a payload carries no product code at
// all or a fixed-length field runs past the end of the string. The scanning
// UI treats this as "unreadable code, please rescan".
var ErrMalformedPayload = errors.New("malformed barcode payload")

// fnc1 is the GS1 group separator (ASCII 29) between variable-length fields.
const fnc1 = "\x1d"

// GS1 application identifiers and ASC data identifiers.
const (
	AIGtin   = "01" // GTIN, 14 digits fixed
	AIBatch  = "10" // batch/lot, variable up to 20
	AIExpiry = "17" // expiry YYMMDD, 6 digits fixed
	AISerial = "21" // serial, variable up to 20
	DIPPN    = "9N" // PPN product code, variable
	DIBatch  = "1T" // batch/lot (ASC), variable
	DIExpiry = "D"  // expiry YYMMDD (ASC), 6 digits fixed
	DISerial = "S"  // serial (ASC), variable
)

const maxVariableLen = 20

// Field is one (identifier, value) pair in scan order.
type Field struct {
	ID    string
	Value string
}

// ParsedCode is the tokenized form of one scanned payload: an ordered
// mapping from identifier to raw value. At most one value is kept per
// identifier (the first occurrence wins); unrecognized identifiers are
// preserved untouched so nothing from the label is silently dropped.
type ParsedCode struct {
	fields []Field
	index  map[string]int
}

func newParsedCode() *ParsedCode {
	return &ParsedCode{index: make(map[string]int)}
}

func (p *ParsedCode) set(id, value string) {
	if _, ok := p.index[id]; ok {
		return
	}
	p.index[id] = len(p.fields)
	p.fields = append(p.fields, Field{ID: id, Value: value})
}

func (p *ParsedCode) has(id string) bool {
	_, ok := p.index[id]
	return ok
}

// Get returns the value for an identifier and whether it was present.
func (p *ParsedCode) Get(id string) (string, bool) {
	i, ok := p.index[id]
	if !ok {
		return "", false
	}
	return p.fields[i].Value, true
}

// Fields returns all parsed fields in scan order.
func (p *ParsedCode) Fields() []Field {
	return p.fields
}

// ProductCode returns the GTIN (AI 01) or, failing that, the PPN (DI 9N).
func (p *ParsedCode) ProductCode() (string, bool) {
	if v, ok := p.Get(AIGtin); ok {
		return v, true
	}
	if v, ok := p.Get(DIPPN); ok {
		return v, true
	}
	return "", false
}

// Serial returns the serial number from either encoding.
func (p *ParsedCode) Serial() string {
	if v, ok := p.Get(AISerial); ok {
		return v
	}
	v, _ := p.Get(DISerial)
	return v
}

// Batch returns the batch/lot number from either encoding.
func (p *ParsedCode) Batch() string {
	if v, ok := p.Get(AIBatch); ok {
		return v
	}
	v, _ := p.Get(DIBatch)
	return v
}

// Expiry returns the raw YYMMDD expiry value from either encoding.
func (p *ParsedCode) Expiry() string {
	if v, ok := p.Get(AIExpiry); ok {
		return v
	}
	v, _ := p.Get(DIExpiry)
	return v
}

// Tokenize splits a raw scanned payload into identifier/value pairs. Two
// grammars are tried: FNC1-delimited when the payload contains the group
// separator, otherwise a heuristic walk over the concatenated string. The
// heuristic is inherently ambiguous when a serial or batch value itself
// contains a substring that looks like an identifier; the standard provides
// no way to resolve that without separators.
func Tokenize(raw string) (*ParsedCode, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	// Macro 05/06 envelopes ("[)>" RS 06 GS ... RS EOT) show up on PPN
	// codes; strip the envelope before tokenizing.
	raw = stripMacroEnvelope(raw)
	raw = strings.TrimPrefix(raw, fnc1)

	var (
		pc  *ParsedCode
		err error
	)
	if strings.Contains(raw, fnc1) {
		pc, err = tokenizeDelimited(raw)
	} else {
		pc, err = tokenizeConcatenated(raw)
	}
	if err != nil {
		return nil, err
	}

	if _, ok := pc.ProductCode(); !ok {
		return nil, fmt.Errorf("%w: no product code (AI 01 / DI 9N) found", ErrMalformedPayload)
	}
	return pc, nil
}

func stripMacroEnvelope(raw string) string {
	const rs = "\x1e"
	if !strings.HasPrefix(raw, "[)>"+rs) {
		return raw
	}
	raw = strings.TrimPrefix(raw, "[)>"+rs)
	raw = strings.TrimPrefix(raw, "06"+fnc1)
	raw = strings.TrimPrefix(raw, "05"+fnc1)
	if i := strings.Index(raw, rs); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// tokenizeDelimited handles payloads with FNC1 separators. Fixed-length
// fields consume exactly their length and never need a separator, so one
// segment may hold several fields; a variable-length field always runs to
// the end of its segment.
func tokenizeDelimited(raw string) (*ParsedCode, error) {
	pc := newParsedCode()
	for _, segment := range strings.Split(raw, fnc1) {
		if segment == "" {
			continue
		}
		pos := 0
		for pos < len(segment) {
			rest := segment[pos:]
			switch {
			case strings.HasPrefix(rest, AIGtin):
				if len(rest) < 2+14 {
					return nil, fmt.Errorf("%w: AI(01) needs 14 digits, got %d", ErrMalformedPayload, len(rest)-2)
				}
				pc.set(AIGtin, rest[2:16])
				pos += 16
			case strings.HasPrefix(rest, AIExpiry):
				if len(rest) < 2+6 {
					return nil, fmt.Errorf("%w: AI(17) needs 6 digits, got %d", ErrMalformedPayload, len(rest)-2)
				}
				pc.set(AIExpiry, rest[2:8])
				pos += 8
			case strings.HasPrefix(rest, AIBatch):
				pc.set(AIBatch, capLen(rest[2:]))
				pos = len(segment)
			case strings.HasPrefix(rest, AISerial):
				pc.set(AISerial, capLen(rest[2:]))
				pos = len(segment)
			case strings.HasPrefix(rest, DIPPN):
				pc.set(DIPPN, capLen(rest[2:]))
				pos = len(segment)
			case strings.HasPrefix(rest, DIBatch):
				pc.set(DIBatch, capLen(rest[2:]))
				pos = len(segment)
			case strings.HasPrefix(rest, DIExpiry):
				if len(rest) < 1+6 {
					return nil, fmt.Errorf("%w: DI(D) needs 6 digits, got %d", ErrMalformedPayload, len(rest)-1)
				}
				pc.set(DIExpiry, rest[1:7])
				pos += 7
			case strings.HasPrefix(rest, DISerial):
				pc.set(DISerial, capLen(rest[1:]))
				pos = len(segment)
			default:
				// Unrecognized identifier: preserve the rest of the
				// segment under its 2-char tag, uninterpreted.
				if len(rest) >= 2 {
					pc.set(rest[:2], rest[2:])
				}
				pos = len(segment)
			}
		}
	}
	return pc, nil
}

// tokenizeConcatenated handles payloads without separators. Fixed-length
// identifiers (01, 17) consume their exact length; variable-length fields
// (21, 10) are bounded by scanning forward for the next identifier that
// could still be complete. Only the numeric GS1 identifiers are attempted
// here: the single-letter ASC identifiers are indistinguishable from data
// without separators.
func tokenizeConcatenated(raw string) (*ParsedCode, error) {
	pc := newParsedCode()
	i := 0
	for i < len(raw) {
		rest := raw[i:]
		switch {
		case strings.HasPrefix(rest, AIGtin) && !pc.has(AIGtin):
			if len(rest) < 2+14 {
				return nil, fmt.Errorf("%w: AI(01) needs 14 digits, got %d", ErrMalformedPayload, len(rest)-2)
			}
			pc.set(AIGtin, rest[2:16])
			i += 16
		case strings.HasPrefix(rest, AIExpiry) && !pc.has(AIExpiry):
			if len(rest) < 2+6 {
				return nil, fmt.Errorf("%w: AI(17) needs 6 digits, got %d", ErrMalformedPayload, len(rest)-2)
			}
			pc.set(AIExpiry, rest[2:8])
			i += 8
		case strings.HasPrefix(rest, AISerial) && !pc.has(AISerial):
			// Serials shorter than 8 are rare; the minimum keeps an
			// identifier-looking digit pair inside the serial from
			// ending the field too early.
			end := scanVariableEnd(raw, i+2, 8)
			pc.set(AISerial, raw[i+2:end])
			i = end
		case strings.HasPrefix(rest, AIBatch) && !pc.has(AIBatch):
			end := scanVariableEnd(raw, i+2, 1)
			pc.set(AIBatch, raw[i+2:end])
			i = end
		default:
			// Not a recognizable identifier at this offset; skip one
			// character. Known accuracy limit of the non-FNC1 grammar.
			i++
		}
	}
	return pc, nil
}

// scanVariableEnd finds where a variable-length field ends: at the next
// identifier token that still has room for a complete value, at the 20-char
// cap, or at the end of the payload.
func scanVariableEnd(raw string, start, minLen int) int {
	limit := start + maxVariableLen
	if limit > len(raw) {
		limit = len(raw)
	}
	for j := start + minLen; j < limit; j++ {
		rest := raw[j:]
		if len(rest) < 2 {
			break
		}
		switch {
		case strings.HasPrefix(rest, AIGtin) && len(rest) >= 2+14:
			return j
		case strings.HasPrefix(rest, AIExpiry) && len(rest) >= 2+6:
			return j
		case strings.HasPrefix(rest, AIBatch), strings.HasPrefix(rest, AISerial):
			return j
		}
	}
	return limit
}

func capLen(v string) string {
	if len(v) > maxVariableLen {
		return v[:maxVariableLen]
	}
	return v
}
