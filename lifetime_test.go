package autoreg_test

import (
	"encoding/json"
	"testing"

	"github.com/junioryono/autoreg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifetime(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		tests := []struct {
			lifetime autoreg.Lifetime
			expected string
		}{
			{autoreg.Transient, "Transient"},
			{autoreg.Singleton, "Singleton"},
			{autoreg.Lifetime(999), "Unknown(999)"},
		}

		for _, tt := range tests {
			t.Run(tt.expected, func(t *testing.T) {
				assert.Equal(t, tt.expected, tt.lifetime.String())
			})
		}
	})

	t.Run("IsValid", func(t *testing.T) {
		assert.True(t, autoreg.Transient.IsValid())
		assert.True(t, autoreg.Singleton.IsValid())
		assert.False(t, autoreg.Lifetime(-1).IsValid())
		assert.False(t, autoreg.Lifetime(2).IsValid())
	})

	t.Run("Transient is the zero value", func(t *testing.T) {
		var l autoreg.Lifetime
		assert.Equal(t, autoreg.Transient, l)
	})

	t.Run("MarshalText", func(t *testing.T) {
		text, err := autoreg.Singleton.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "Singleton", string(text))

		_, err = autoreg.Lifetime(7).MarshalText()
		var lifetimeErr autoreg.LifetimeError
		assert.ErrorAs(t, err, &lifetimeErr)
	})

	t.Run("UnmarshalText", func(t *testing.T) {
		tests := []struct {
			input    string
			expected autoreg.Lifetime
		}{
			{"Transient", autoreg.Transient},
			{"transient", autoreg.Transient},
			{"Singleton", autoreg.Singleton},
			{"singleton", autoreg.Singleton},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				var l autoreg.Lifetime
				require.NoError(t, l.UnmarshalText([]byte(tt.input)))
				assert.Equal(t, tt.expected, l)
			})
		}

		var l autoreg.Lifetime
		err := l.UnmarshalText([]byte("scoped"))
		var lifetimeErr autoreg.LifetimeError
		require.ErrorAs(t, err, &lifetimeErr)
		assert.Equal(t, "scoped", lifetimeErr.Value)
	})

	t.Run("JSON", func(t *testing.T) {
		type config struct {
			Lifetime autoreg.Lifetime `json:"lifetime"`
		}

		data, err := json.Marshal(config{Lifetime: autoreg.Singleton})
		require.NoError(t, err)
		assert.JSONEq(t, `{"lifetime":"Singleton"}`, string(data))

		var decoded config
		require.NoError(t, json.Unmarshal([]byte(`{"lifetime":"transient"}`), &decoded))
		assert.Equal(t, autoreg.Transient, decoded.Lifetime)

		assert.Error(t, json.Unmarshal([]byte(`{"lifetime":1}`), &decoded))
		assert.Error(t, json.Unmarshal([]byte(`{"lifetime":"scoped"}`), &decoded))
	})
}
