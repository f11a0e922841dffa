package strutils_test

import (
	"testing"

	"github.com/moffittboard/moffittboard/internal/strutils"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input          string
		expected       string
		errorSubstring string
	}{
		{input: "oski@berkeley.edu", expected: "oski@berkeley.edu"},
		{input: "  Oski@Berkeley.EDU\n", expected: "oski@berkeley.edu"},
		{input: "first.last+tag@eecs.berkeley.edu", expected: "first.last+tag@eecs.berkeley.edu"},
		{input: "oski.berkeley.edu", errorSubstring: "missing @"},
		{input: "@berkeley.edu", errorSubstring: "empty local part"},
		{input: "oski@", errorSubstring: "empty local part"},
		{input: "oski@bear@berkeley.edu", errorSubstring: "multiple @"},
		{input: "os ki@berkeley.edu", errorSubstring: "whitespace"},
		{input: "", errorSubstring: "missing @"},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			t.Parallel()

			result, err := strutils.NormalizeEmail(c.input)
			if c.errorSubstring != "" {
				require.ErrorContains(t, err, c.errorSubstring)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, result)
		})
	}
}

func TestEmailLocalPart(t *testing.T) {
	t.Parallel()

	require.Equal(t, "oski", strutils.EmailLocalPart("oski@berkeley.edu"))
	require.Equal(t, "first.last", strutils.EmailLocalPart("first.last@eecs.berkeley.edu"))
	require.Equal(t, "nodomain", strutils.EmailLocalPart("nodomain"))
}

func TestEmailHasDomain(t *testing.T) {
	t.Parallel()

	cases := []struct {
		email    string
		domain   string
		expected bool
	}{
		{email: "oski@berkeley.edu", domain: "berkeley.edu", expected: true},
		{email: "oski@eecs.berkeley.edu", domain: "berkeley.edu", expected: true},
		{email: "oski@berkeley.edu", domain: "Berkeley.EDU", expected: true},
		{email: "oski@notberkeley.edu", domain: "berkeley.edu", expected: false},
		{email: "oski@berkeley.edu.evil.com", domain: "berkeley.edu", expected: false},
		{email: "oski@stanford.edu", domain: "berkeley.edu", expected: false},
		{email: "oski", domain: "berkeley.edu", expected: false},
	}

	for _, c := range cases {
		t.Run(c.email+" "+c.domain, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, c.expected, strutils.EmailHasDomain(c.email, c.domain))
		})
	}
}
