package domain_test

import (
	"testing"

	"github.com/matshaug/flagline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagForLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		location string
		flag     string
		found    bool
	}{
		{location: "Paris, France", flag: "\U0001F1EB\U0001F1F7", found: true},
		{location: "France", flag: "\U0001F1EB\U0001F1F7", found: true},
		{location: "Oslo, Norway", flag: "\U0001F1F3\U0001F1F4", found: true},
		{location: "Tokyo", flag: "\U0001F1EF\U0001F1F5", found: true},
		{location: "NYC", flag: "\U0001F1FA\U0001F1F8", found: true},
		{location: "Portland, OR", flag: "\U0001F1FA\U0001F1F8", found: true},
		{location: "San Francisco, CA", flag: "\U0001F1FA\U0001F1F8", found: true},
		{location: "London, UK", flag: "\U0001F1EC\U0001F1E7", found: true},
		{location: "U.S.A.", flag: "\U0001F1FA\U0001F1F8", found: true},
		{location: "Berlin / Deutschland", flag: "\U0001F1E9\U0001F1EA", found: true},
		{location: "new york", flag: "\U0001F1FA\U0001F1F8", found: true},
		{location: "São Paulo, Brasil", flag: "\U0001F1E7\U0001F1F7", found: true},
		{location: "somewhere over the rainbow", found: false},
		{location: "", found: false},
		{location: "the moon", found: false},
	}

	for _, c := range cases {
		t.Run(c.location, func(t *testing.T) {
			t.Parallel()

			flag, found := domain.FlagForLocation(c.location)
			require.Equal(t, c.found, found)
			assert.Equal(t, c.flag, flag)
		})
	}
}

func TestFlagForLocationPrefersCountryOverCity(t *testing.T) {
	t.Parallel()

	// The city term must not win over an explicit country elsewhere in the
	// string.
	flag, found := domain.FlagForLocation("Paris, Texas, USA")
	require.True(t, found)
	assert.Equal(t, "\U0001F1FA\U0001F1F8", flag)
}

func TestValidateHandle(t *testing.T) {
	t.Parallel()

	require.NoError(t, domain.ValidateHandle("alice"))
	require.NoError(t, domain.ValidateHandle("alice_bob_123"))
	require.NoError(t, domain.ValidateHandle("a"))

	require.ErrorIs(t, domain.ValidateHandle(""), domain.ErrInvalidHandle)
	require.ErrorIs(t, domain.ValidateHandle("way_too_long_handle"), domain.ErrInvalidHandle)
	require.ErrorIs(t, domain.ValidateHandle("no spaces"), domain.ErrInvalidHandle)
	require.ErrorIs(t, domain.ValidateHandle("dash-ed"), domain.ErrInvalidHandle)
}
