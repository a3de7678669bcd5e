package glob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		// literals
		{"exact match", "orders", "orders", true},
		{"literal mismatch", "orders", "users", false},
		{"prefix is not a match", "orders", "orders_2024", false},
		{"empty pattern empty name", "", "", true},
		{"empty pattern nonempty name", "", "x", false},

		// star
		{"star alone", "*", "anything", true},
		{"star alone empty", "*", "", true},
		{"star prefix", "*_backup", "orders_backup", true},
		{"star prefix empty run", "*_backup", "_backup", true},
		{"star suffix", "tmp_*", "tmp_sessions", true},
		{"star suffix no match", "tmp_*", "temp_sessions", false},
		{"star middle", "a*c", "abc", true},
		{"star middle long", "a*c", "a_very_long_c", true},
		{"star middle no match", "a*c", "abd", false},
		{"two stars", "a*b*c", "aXbYc", true},
		{"two stars backtrack", "a*b*c", "abXbc", true},
		{"double star collapses", "a**c", "abc", true},

		// question mark
		{"question exactly one", "temp_??", "temp_ab", true},
		{"question too many", "temp_??", "temp_abc", false},
		{"question too few", "temp_??", "temp_a", false},
		{"question any char", "?", "x", true},
		{"question no char", "?", "", false},

		// classes
		{"class member", "log_[0-9]", "log_5", true},
		{"class nonmember", "log_[0-9]", "log_x", false},
		{"class list", "[abc]_data", "b_data", true},
		{"class list miss", "[abc]_data", "d_data", false},
		{"negated class", "[!0-9]x", "ax", true},
		{"negated class miss", "[!0-9]x", "7x", false},
		{"class with multiple ranges", "[a-cx-z]", "y", true},
		{"class with multiple ranges miss", "[a-cx-z]", "m", false},
		{"leading bracket member", "[]a]", "]", true},
		{"dash at end is literal", "[a-]", "-", true},

		// malformed classes degrade to literals
		{"unclosed bracket literal", "tmp[", "tmp[", true},
		{"unclosed class literal", "tmp[ab", "tmp[ab", true},

		// combined
		{"star with class", "backup_[0-9]*", "backup_2024_01", true},
		{"star with question", "*_v?", "schema_v2", true},
		{"star with question miss", "*_v?", "schema_v12", false},

		// case sensitivity
		{"case sensitive", "Orders", "orders", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compile(tt.pattern)
			assert.Equal(t, tt.want, p.Match(tt.input),
				"pattern %q against %q", tt.pattern, tt.input)
		})
	}
}

func TestMatchOneShot(t *testing.T) {
	assert.True(t, Match("*_backup", "users_backup"))
	assert.False(t, Match("*_backup", "users"))
}

func TestPatternString(t *testing.T) {
	p := Compile("tmp_*")
	assert.Equal(t, "tmp_*", p.String())
}

func TestCompileAll(t *testing.T) {
	patterns := CompileAll([]string{"tmp_*", "*_backup"})
	assert.Len(t, patterns, 2)
	assert.Equal(t, "tmp_*", patterns[0].String())
}

func TestMatchAny(t *testing.T) {
	patterns := CompileAll([]string{"tmp_*", "*_backup", "cache"})

	tests := []struct {
		input string
		want  bool
	}{
		{"tmp_sessions", true},
		{"orders_backup", true},
		{"cache", true},
		{"temp_sessions", false},
		{"orders", false},
		{"cache_v2", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchAny(patterns, tt.input))
		})
	}
}

func TestMatchAnyEmptyPatternList(t *testing.T) {
	assert.False(t, MatchAny(nil, "anything"))
}
