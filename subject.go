package passwordless

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
)

// SubjectIdentity is an ordered mapping from primary-key field name to its
// string-encoded value. Order is preserved so the same identity always
// encodes to the same subject string, which matters when the subject is
// itself signed material downstream.
type SubjectIdentity struct {
	fields []string
	values map[string]string
}

// NewSubjectIdentity returns an empty identity.
func NewSubjectIdentity() *SubjectIdentity {
	return &SubjectIdentity{values: map[string]string{}}
}

// Set records a field value, preserving first-insertion order. Setting an
// existing field overwrites its value without reordering.
func (s *SubjectIdentity) Set(field, value string) *SubjectIdentity {
	if _, exists := s.values[field]; !exists {
		s.fields = append(s.fields, field)
	}
	s.values[field] = value
	return s
}

// Get returns the value for a field.
func (s *SubjectIdentity) Get(field string) (string, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Fields returns the field names in insertion order.
func (s *SubjectIdentity) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s *SubjectIdentity) Len() int {
	return len(s.fields)
}

// Equal reports whether two identities have the same fields, in the same
// order, with the same values.
func (s *SubjectIdentity) Equal(other *SubjectIdentity) bool {
	if other == nil || len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		if other.fields[i] != f {
			return false
		}
		if s.values[f] != other.values[f] {
			return false
		}
	}
	return true
}

// EncodeSubject serializes an identity into the canonical token subject form
// "<subject>:primary_key?field1=value1&field2=value2". Fields are emitted in
// insertion order so identical identities always encode identically.
func EncodeSubject(subjectName string, identity *SubjectIdentity) string {
	var sb strings.Builder
	sb.WriteString(subjectName)
	sb.WriteString(":primary_key?")
	for i, field := range identity.fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(field))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(identity.values[field]))
	}
	return sb.String()
}

// DecodeSubject parses a token subject back into an ordered identity and
// verifies the decoded field-name set exactly equals the resource's declared
// primary-key field set. Both missing and extraneous fields fail the check.
func DecodeSubject(sub string, primaryKeyFields []string) (*SubjectIdentity, error) {
	if sub == "" {
		return nil, ErrMissingSubject
	}

	u, err := url.Parse(sub)
	if err != nil {
		return nil, errors.Wrap(err, ErrMissingSubject.Category, ErrMissingSubject.Message).
			WithTextCode(ErrMissingSubject.TextCode)
	}

	identity := NewSubjectIdentity()
	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, "&") {
			name, value, _ := strings.Cut(pair, "=")
			field, err := url.QueryUnescape(name)
			if err != nil {
				return nil, errors.Wrap(err, ErrMissingSubject.Category, ErrMissingSubject.Message).
					WithTextCode(ErrMissingSubject.TextCode)
			}
			decoded, err := url.QueryUnescape(value)
			if err != nil {
				return nil, errors.Wrap(err, ErrMissingSubject.Category, ErrMissingSubject.Message).
					WithTextCode(ErrMissingSubject.TextCode)
			}
			identity.Set(field, decoded)
		}
	}

	declared := make(map[string]bool, len(primaryKeyFields))
	for _, f := range primaryKeyFields {
		declared[f] = true
	}

	var missing, extra []string
	for _, f := range primaryKeyFields {
		if _, ok := identity.Get(f); !ok {
			missing = append(missing, f)
		}
	}
	for _, f := range identity.fields {
		if !declared[f] {
			extra = append(extra, f)
		}
	}

	if len(missing) > 0 || len(extra) > 0 {
		return nil, ErrSubjectKeyMismatch.Clone().WithMetadata(map[string]any{
			"missing_fields": missing,
			"extra_fields":   extra,
		})
	}

	return identity, nil
}
