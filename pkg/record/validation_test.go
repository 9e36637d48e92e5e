package record

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	var errs Errors
	assert.True(t, errs.Empty())
	assert.Zero(t, errs.Len())

	errs.Add("name", "can't be blank")
	errs.Add("born_at", "is invalid")
	errs.Add("name", "is too short (minimum is 2 characters)")
	errs.Add("group_id", "is not included in the list")

	assert.False(t, errs.Empty())
	assert.Equal(t, 4, errs.Len())
	assert.Equal(t, []string{"name", "born_at", "group_id"}, errs.Attributes())
	assert.Equal(t, []string{"can't be blank", "is too short (minimum is 2 characters)"}, errs.On("name"))
	assert.Nil(t, errs.On("email"))
	assert.Equal(t, []string{
		"Name can't be blank",
		"Name is too short (minimum is 2 characters)",
		"Born at is invalid",
		"Group is not included in the list",
	}, errs.FullMessages())

	m := errs.Map()
	m["name"][0] = "mutated"
	assert.Equal(t, "can't be blank", errs.On("name")[0], "Map returns a copy")

	errs.Clear()
	assert.True(t, errs.Empty())
	assert.Nil(t, errs.FullMessages())
}

func TestRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		attrs map[string]any
		want  map[string][]string
	}{
		{
			name:  "presence passes",
			rule:  Presence("name"),
			attrs: map[string]any{"name": "Ada"},
		},
		{
			name:  "presence rejects blank text",
			rule:  Presence("name", "email"),
			attrs: map[string]any{"name": "   "},
			want:  map[string][]string{"name": {"can't be blank"}, "email": {"can't be blank"}},
		},
		{
			name:  "presence rejects empty blob",
			rule:  Presence("avatar"),
			attrs: map[string]any{"avatar": []byte{}},
			want:  map[string][]string{"avatar": {"can't be blank"}},
		},
		{
			name:  "presence accepts false",
			rule:  Presence("active"),
			attrs: map[string]any{"active": false},
		},
		{
			name:  "length counts characters",
			rule:  Length("name", 2, 4),
			attrs: map[string]any{"name": "Łódź"},
		},
		{
			name:  "length too short",
			rule:  Length("name", 2, 0),
			attrs: map[string]any{"name": "A"},
			want:  map[string][]string{"name": {"is too short (minimum is 2 characters)"}},
		},
		{
			name:  "length too long",
			rule:  Length("name", 0, 3),
			attrs: map[string]any{"name": "Grace"},
			want:  map[string][]string{"name": {"is too long (maximum is 3 characters)"}},
		},
		{
			name:  "length skips null",
			rule:  Length("email", 5, 10),
			attrs: map[string]any{},
		},
		{
			name:  "range within bounds",
			rule:  Range("score", 0, 10),
			attrs: map[string]any{"score": 10.0},
		},
		{
			name:  "range below minimum",
			rule:  Range("age", 0, 150),
			attrs: map[string]any{"age": -1},
			want:  map[string][]string{"age": {"must be greater than or equal to 0"}},
		},
		{
			name:  "range above maximum",
			rule:  Range("score", 0, 9.5),
			attrs: map[string]any{"score": 9.75},
			want:  map[string][]string{"score": {"must be less than or equal to 9.5"}},
		},
		{
			name:  "inclusion matches across integer kinds",
			rule:  Inclusion("age", 18, 21, 65),
			attrs: map[string]any{"age": int64(21)},
		},
		{
			name:  "inclusion rejects",
			rule:  Inclusion("email", "a@example.com", "b@example.com"),
			attrs: map[string]any{"email": "c@example.com"},
			want:  map[string][]string{"email": {"is not included in the list"}},
		},
		{
			name:  "match",
			rule:  Match("name", regexp.MustCompile(`^[A-Z]`)),
			attrs: map[string]any{"name": "ada"},
			want:  map[string][]string{"name": {"is invalid"}},
		},
		{
			name:  "format email passes",
			rule:  Format("email", "email"),
			attrs: map[string]any{"email": "ada@example.com"},
		},
		{
			name:  "format email rejects",
			rule:  Format("email", "email"),
			attrs: map[string]any{"email": "not an address"},
			want:  map[string][]string{"email": {"is not a valid email"}},
		},
		{
			name:  "format uuid rejects",
			rule:  Format("name", "uuid"),
			attrs: map[string]any{"name": "Ada"},
			want:  map[string][]string{"name": {"is not a valid uuid"}},
		},
		{
			name:  "format skips null",
			rule:  Format("email", "email"),
			attrs: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			people, _ := spyPeople(t, WithRules(tt.rule))
			r, err := people.Build(tt.attrs)
			require.NoError(t, err)

			valid := r.Valid()
			if tt.want == nil {
				assert.True(t, valid, r.Errors().FullMessages())
				return
			}
			assert.False(t, valid)
			assert.Equal(t, tt.want, r.Errors().Map())
		})
	}
}

func TestFormat_UnknownFormatPanics(t *testing.T) {
	assert.Panics(t, func() { Format("email", "no-such-format") })
}

func TestValid_RebuildsErrors(t *testing.T) {
	people, _ := spyPeople(t, WithRules(Presence("name")))
	r := people.New()

	assert.False(t, r.Valid())
	assert.False(t, r.Valid())
	assert.Equal(t, 1, r.Errors().Len(), "a second pass does not accumulate messages")

	require.NoError(t, r.Set("name", "Ada"))
	assert.True(t, r.Valid())
	assert.True(t, r.Errors().Empty())
}

func TestValid_RulesRunInOrderAndSeeState(t *testing.T) {
	var seen []string
	first := func(v Values, errs *Errors) { seen = append(seen, "first") }
	onUpdate := func(v Values, errs *Errors) {
		seen = append(seen, "second")
		if v.Persisted() && v.Get("email") == nil {
			errs.Add("email", "is required once saved")
		}
	}

	people, _ := setupPeople(t, WithRules(first, onUpdate))
	ctx := context.Background()

	r, err := people.Create(ctx, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, seen)

	saved, err := r.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, []string{"is required once saved"}, r.Errors().On("email"))
}

func TestValues(t *testing.T) {
	people, _ := spyPeople(t)
	r, err := people.Build(map[string]any{"name": "Ada"})
	require.NoError(t, err)

	v := Values{r: r}
	assert.Equal(t, "Ada", v.Get("name"))
	assert.Nil(t, v.Get("email"))
	assert.Nil(t, v.Get("nickname"))
	assert.True(t, v.Has("email"))
	assert.False(t, v.Has("nickname"))
	assert.False(t, v.Persisted())
}
