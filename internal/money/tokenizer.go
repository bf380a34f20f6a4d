package money

// Token is a currency-shaped figure found inside a larger string.
type Token struct {
	Text  string
	Start int
	End   int
	Value Amount
}

// FindTokens returns every currency-shaped figure in s, in order.
//
// A figure is a run of digits, either plain ("5000") or grouped as one to
// three digits followed by ".ddd" groups ("5.000"), then a comma and exactly
// two digits. Figures glued to neighbouring digits are rejected, so
// "12345,678" and "1,2345" yield nothing.
func FindTokens(s string) []Token {
	var out []Token
	i := 0
	for i < len(s) {
		if !isDigit(s[i]) || gluedLeft(s, i) {
			i++
			continue
		}
		if end, ok := matchAt(s, i); ok {
			out = append(out, Token{
				Text:  s[i:end],
				Start: i,
				End:   end,
				Value: Parse(s[i:end]),
			})
			i = end
			continue
		}
		i = skipNumber(s, i)
	}
	return out
}

// Contains reports whether s holds at least one currency-shaped figure.
func Contains(s string) bool {
	i := 0
	for i < len(s) {
		if !isDigit(s[i]) || gluedLeft(s, i) {
			i++
			continue
		}
		if _, ok := matchAt(s, i); ok {
			return true
		}
		i = skipNumber(s, i)
	}
	return false
}

// First returns the first figure in s.
func First(s string) (Token, bool) {
	tokens := FindTokens(s)
	if len(tokens) == 0 {
		return Token{}, false
	}
	return tokens[0], true
}

// Last returns the last figure in s.
func Last(s string) (Token, bool) {
	tokens := FindTokens(s)
	if len(tokens) == 0 {
		return Token{}, false
	}
	return tokens[len(tokens)-1], true
}

// matchAt runs the matcher from a digit at i and returns the end offset of
// the figure.
func matchAt(s string, i int) (int, bool) {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j-i <= 3 {
		for j+3 < len(s) && s[j] == '.' && isDigit(s[j+1]) && isDigit(s[j+2]) && isDigit(s[j+3]) && !digitAt(s, j+4) {
			j += 4
		}
	}
	if j+2 < len(s) && s[j] == ',' && isDigit(s[j+1]) && isDigit(s[j+2]) && !digitAt(s, j+3) {
		return j + 3, true
	}
	return 0, false
}

// gluedLeft reports whether position i continues a number that started
// earlier ("1.2" or "1,2" seen from the "2").
func gluedLeft(s string, i int) bool {
	if i == 0 {
		return false
	}
	if isDigit(s[i-1]) {
		return true
	}
	return (s[i-1] == '.' || s[i-1] == ',') && i > 1 && isDigit(s[i-2])
}

// skipNumber moves past a digit run and its separators after a failed match.
func skipNumber(s string, i int) int {
	for i < len(s) && (isDigit(s[i]) || ((s[i] == '.' || s[i] == ',') && digitAt(s, i+1))) {
		i++
	}
	return i
}

func digitAt(s string, i int) bool {
	return i < len(s) && isDigit(s[i])
}
