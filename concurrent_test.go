package textline

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func Test_MultiScanner(t *testing.T) {
	t.Run("drains every input", func(t *testing.T) {
		ctx := context.Background()
		inputs := []Input{
			{Name: "a", Source: stringSource("a1\na2\r\n")},
			{Name: "b", Source: stringSource("b1\rb2")},
			{Name: "c", Source: stringSource("")},
		}
		scanner, err := NewMultiScanner(ctx, inputs, &ScanOptions{Concurrency: 2})
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, scanner.Close())
		})

		var got []ScannedLine
		for scanner.Scan() {
			got = append(got, scanner.Line())
		}
		require.NoError(t, scanner.Err())

		sort.Slice(got, func(i, j int) bool {
			if got[i].Source != got[j].Source {
				return got[i].Source < got[j].Source
			}
			return got[i].Position < got[j].Position
		})
		require.Equal(t, []ScannedLine{
			{Source: "a", Position: 0, Text: "a1\n"},
			{Source: "a", Position: 3, Text: "a2\r\n"},
			{Source: "b", Position: 0, Text: "b1\r"},
			{Source: "b", Position: 3, Text: "b2"},
		}, got)
	})

	t.Run("applies filters", func(t *testing.T) {
		ctx := context.Background()
		inputs := []Input{
			{Name: "a", Source: stringSource("keep\n\n\nkeep too\n")},
		}
		scanner, err := NewMultiScanner(ctx, inputs, &ScanOptions{
			Filters: []Filter{FilterNotBlank()},
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, scanner.Close())
		})

		var got []ScannedLine
		for scanner.Scan() {
			got = append(got, scanner.Line())
		}
		require.NoError(t, scanner.Err())
		// positions advance past the dropped blank lines
		require.Equal(t, []ScannedLine{
			{Source: "a", Position: 0, Text: "keep\n"},
			{Source: "a", Position: 7, Text: "keep too\n"},
		}, got)
	})

	t.Run("respects input offsets", func(t *testing.T) {
		ctx := context.Background()
		inputs := []Input{
			{Name: "resumed", Source: stringSource("second\n"), Offset: 6},
		}
		scanner, err := NewMultiScanner(ctx, inputs, nil)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, scanner.Close())
		})

		require.True(t, scanner.Scan())
		require.Equal(t, ScannedLine{Source: "resumed", Position: 6, Text: "second\n"}, scanner.Line())
		require.False(t, scanner.Scan())
		require.NoError(t, scanner.Err())
	})

	t.Run("surfaces parser errors", func(t *testing.T) {
		ctx := context.Background()
		inputs := []Input{
			{Name: "ok", Source: stringSource("fine\n")},
			{Name: "broken", Source: &fakeSource{data: []byte("partial\n"), failErr: errBoom}},
		}
		scanner, err := NewMultiScanner(ctx, inputs, nil)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = scanner.Close() //nolint:errcheck // already failing
		})

		for scanner.Scan() {
		}
		require.Equal(t, errBoom, scanner.Err())
	})
}
