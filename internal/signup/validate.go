package signup

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	MsgRequiredFields   = "Please fill in all fields"
	MsgInvalidAge       = "Please enter a valid age between 13 and 120"
	MsgPasswordMismatch = "Passwords do not match"
	MsgPasswordTooShort = "Password must be at least 6 characters long"
)

const (
	minAge            = 13
	maxAge            = 120
	minPasswordLength = 6
)

// Data is the signup form as submitted. Age stays a string until validation.
type Data struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Age             string `json:"age"`
}

// Result carries either success or the single message of the first failed check.
type Result struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// ValidationError is the error form of an invalid Result.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Message: r.Error}
}

func valid() Result { return Result{IsValid: true} }

func invalid(msg string) Result { return Result{Error: msg} }

// ValidateRequiredFields fails when any field is empty. Whitespace counts as filled.
func ValidateRequiredFields(d Data) Result {
	if d.Name == "" || d.Email == "" || d.Password == "" || d.ConfirmPassword == "" || d.Age == "" {
		return invalid(MsgRequiredFields)
	}
	return valid()
}

// ValidateAge accepts ages in [13, 120] after a lenient integer parse:
// "25abc" reads as 25 and "13.9" as 13.
func ValidateAge(age string) Result {
	if _, ok := ParseAge(age); !ok {
		return invalid(MsgInvalidAge)
	}
	return valid()
}

// ParseAge returns the age ValidateAge would read from s, and whether it is
// inside [13, 120].
func ParseAge(s string) (int, bool) {
	n, ok := parseLeadingInt(s)
	if !ok || n < minAge || n > maxAge {
		return 0, false
	}
	return n, true
}

// ValidatePassword checks equality first, then length.
func ValidatePassword(password, confirmPassword string) Result {
	if password != confirmPassword {
		return invalid(MsgPasswordMismatch)
	}
	if utf16Len(password) < minPasswordLength {
		return invalid(MsgPasswordTooShort)
	}
	return valid()
}

// Validate runs the required-fields, age and password checks in that order
// and returns the first failure.
func Validate(d Data) Result {
	if r := ValidateRequiredFields(d); !r.IsValid {
		return r
	}
	if r := ValidateAge(d.Age); !r.IsValid {
		return r
	}
	if r := ValidatePassword(d.Password, d.ConfirmPassword); !r.IsValid {
		return r
	}
	return valid()
}

// parseLeadingInt skips leading ECMAScript whitespace, takes an optional sign and the
// longest run of decimal digits. ok is false when there are no digits.
func parseLeadingInt(s string) (n int, ok bool) {
	s = strings.TrimLeftFunc(s, isJSSpace)

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// only ErrRange is possible here; saturate so the bounds check fails
		if neg {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	if neg {
		n = -n
	}
	return n, true
}

// isJSSpace reports whether r is ECMAScript WhiteSpace or LineTerminator,
// the set a JavaScript number parse skips. It differs from unicode.IsSpace:
// U+FEFF is included, U+0085 is not.
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\uFEFF', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// utf16Len measures s the way a JavaScript string length does.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
