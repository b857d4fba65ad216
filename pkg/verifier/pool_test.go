package verifier

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const size = 32

func TestCheckPool(t *testing.T) {
	t.Parallel()

	checks := make([]check, size)
	for i := range checks {
		i := i
		checks[i] = func() error {
			if i%3 == 0 {
				return fmt.Errorf("check %d", i)
			}
			return nil
		}
	}

	cpSync := newCheckPoolSync(size)
	cpSync.run()
	for i, c := range checks {
		cpSync.enqueue(c, i)
	}
	resSync := cpSync.result()

	cpPara := newCheckPool(4, size)
	cpPara.run()
	for i, c := range checks {
		cpPara.enqueue(c, i)
	}
	resPara := cpPara.result()

	require.Equal(t, resSync, resPara)
	for i, err := range resPara {
		if i%3 == 0 {
			require.EqualError(t, err, fmt.Sprintf("check %d", i))
		} else {
			require.NoError(t, err)
		}
	}
}

func TestCheckRunnerRunsEveryCheck(t *testing.T) {
	testCases := []struct {
		name    string
		nworker int
		n       int
	}{
		{"sync", 1, size},
		{"single check", 8, 1},
		{"more workers than checks", 64, size},
		{"parallel", 4, size},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int64
			errFail := errors.New("fail")
			cr := newCheckRunner(tc.nworker, tc.n)
			cr.run()
			for i := 0; i < tc.n; i++ {
				cr.enqueue(func() error {
					calls.Add(1)
					return errFail
				}, i)
			}
			res := cr.result()
			require.Len(t, res, tc.n)
			require.EqualValues(t, tc.n, calls.Load())
			for _, err := range res {
				require.ErrorIs(t, err, errFail)
			}
		})
	}
}

func BenchmarkCheckPool(b *testing.B) {
	c := func() error {
		var acc int
		for i := 0; i < 1<<12; i++ {
			acc += i
		}
		if acc < 0 {
			return errors.New("overflow")
		}
		return nil
	}
	for i := 0; i < b.N; i++ {
		cp := newCheckPool(4, size)
		cp.run()
		for j := 0; j < size; j++ {
			cp.enqueue(c, j)
		}
		_ = cp.result()
	}
}
