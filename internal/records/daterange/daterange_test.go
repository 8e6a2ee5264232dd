package daterange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
)

func ptr(s string) *string { return &s }

func TestResolve(t *testing.T) {
	t.Run("both absent resolves to all", func(t *testing.T) {
		q, err := Resolve(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, KindAll, q.Kind)
	})

	t.Run("empty strings count as absent", func(t *testing.T) {
		q, err := Resolve(ptr(""), ptr(""))
		require.NoError(t, err)
		assert.Equal(t, KindAll, q.Kind)
	})

	t.Run("both present resolves to between", func(t *testing.T) {
		q, err := Resolve(ptr("2000-01-01"), ptr("2001-01-01"))
		require.NoError(t, err)
		assert.Equal(t, KindBetween, q.Kind)
		assert.Equal(t, "2000-01-01", q.From.String())
		assert.Equal(t, "2001-01-01", q.To.String())
	})

	t.Run("equal bounds are allowed", func(t *testing.T) {
		q, err := Resolve(ptr("2000-01-01"), ptr("2000-01-01"))
		require.NoError(t, err)
		assert.Equal(t, KindBetween, q.Kind)
		assert.True(t, q.From.Equal(q.To))
	})

	t.Run("inverted bounds fail", func(t *testing.T) {
		_, err := Resolve(ptr("2003-01-01"), ptr("2001-01-01"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRange))

		var orderErr *OrderError
		require.True(t, errors.As(err, &orderErr))
		assert.Equal(t, "2003-01-01", orderErr.From.String())
	})

	t.Run("from only resolves to after", func(t *testing.T) {
		q, err := Resolve(ptr("2000-01-01"), nil)
		require.NoError(t, err)
		assert.Equal(t, KindAfter, q.Kind)
		assert.Equal(t, "2000-01-01", q.From.String())
		assert.True(t, q.To.IsZero())
	})

	t.Run("to only resolves to before", func(t *testing.T) {
		q, err := Resolve(nil, ptr("2000-01-01"))
		require.NoError(t, err)
		assert.Equal(t, KindBefore, q.Kind)
		assert.Equal(t, "2000-01-01", q.To.String())
		assert.True(t, q.From.IsZero())
	})

	t.Run("malformed bound names the value and pattern", func(t *testing.T) {
		_, err := Resolve(ptr("2020-13-40"), nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDate))
		assert.Contains(t, err.Error(), "2020-13-40")
		assert.Contains(t, err.Error(), domain.DatePattern)

		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
		assert.Equal(t, "2020-13-40", formatErr.Value)
	})

	t.Run("malformed end bound fails even when start is valid", func(t *testing.T) {
		_, err := Resolve(ptr("2020-01-01"), ptr("01/02/2020"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDate))
	})
}

type recordingFinder struct {
	calls []string
}

func (f *recordingFinder) FindAll(context.Context) ([]int, error) {
	f.calls = append(f.calls, "all")
	return []int{1}, nil
}

func (f *recordingFinder) FindByBirthDateBetween(context.Context, domain.Date, domain.Date) ([]int, error) {
	f.calls = append(f.calls, "between")
	return []int{2}, nil
}

func (f *recordingFinder) FindByBirthDateAfter(context.Context, domain.Date) ([]int, error) {
	f.calls = append(f.calls, "after")
	return []int{3}, nil
}

func (f *recordingFinder) FindByBirthDateBefore(context.Context, domain.Date) ([]int, error) {
	f.calls = append(f.calls, "before")
	return []int{4}, nil
}

func TestDispatch_InvokesExactlyOneLookup(t *testing.T) {
	d := "2000-01-01"
	cases := []struct {
		from, to *string
		want     string
	}{
		{nil, nil, "all"},
		{&d, &d, "between"},
		{&d, nil, "after"},
		{nil, &d, "before"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			q, err := Resolve(tc.from, tc.to)
			require.NoError(t, err)

			f := &recordingFinder{}
			_, err = Dispatch[int](context.Background(), q, f)
			require.NoError(t, err)
			assert.Equal(t, []string{tc.want}, f.calls)
		})
	}
}
