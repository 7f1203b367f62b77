package rankedtree_test

import (
	"cmp"
	"encoding/json"
	"iter"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/ddirect/rankfeed/internal/rankedtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	node = rankedtree.Item[int32B, int, int]
	tree = rankedtree.Tree[int32B, int, int]
)

func auxiliaries(it iter.Seq[*node]) []int {
	var s []int
	for i := range it {
		s = append(s, i.Auxiliary())
	}
	return s
}

func Test_Basic(t *testing.T) {
	const (
		n    = 1000
		maxR = 100
	)

	type refItem struct {
		rank int32B
		aux  int
	}

	var tr tree
	var ref []refItem
	for aux := range n {
		r := rand.N[int32B](maxR)
		item := tr.Insert(r, aux)
		item.Value = -aux
		assert.Equal(t, r, item.Rank())
		assert.Equal(t, aux, item.Auxiliary())
		assert.True(t, item.Present())
		ref = append(ref, refItem{r, aux})
	}
	require.NoError(t, tr.Verify())
	assert.Equal(t, n, tr.Len())

	// equal ranks keep insertion order
	slices.SortStableFunc(ref, func(a, b refItem) int {
		return cmp.Compare(a.rank, b.rank)
	})

	var s []refItem
	for it := range tr.RemoveOrdered() {
		assert.Equal(t, -it.Auxiliary(), it.Value)
		s = append(s, refItem{it.Rank(), it.Auxiliary()})
	}

	assert.Equal(t, ref, s)
	assert.Equal(t, 0, tr.Len())
	assert.Nil(t, tr.First())
}

func Test_CannotDeleteTwice(t *testing.T) {
	var tr tree
	item := tr.Insert(0, 0)
	tr.Insert(1, 1)
	tr.Delete(item)
	assert.Panics(t, func() { tr.Delete(item) })
	assert.NoError(t, tr.Verify())
}

func Test_Present(t *testing.T) {
	var tr tree
	item := tr.Insert(1, 0)
	assert.True(t, item.Present())
	tr.Delete(item)
	assert.False(t, item.Present())

	var none *node
	assert.False(t, none.Present())
}

func Test_Values(t *testing.T) {
	const count = 1000
	var tr tree
	for i := range count {
		tr.Insert(int32B(rand.Int32()), i+1)
	}

	ref := make([]int, count)
	var prev *node
	for val := range tr.Values() {
		if prev != nil {
			assert.False(t, val.Rank().Before(prev.Rank()))
		}
		prev = val
		i := val.Auxiliary() - 1
		assert.Zero(t, ref[i])
		ref[i] = i + 1
	}

	for i, v := range ref {
		assert.Equal(t, i+1, v)
	}
}

func Test_DeleteWhileIterating(t *testing.T) {
	var tr tree
	for i := range 100 {
		tr.Insert(int32B(i), i)
	}

	for it := range tr.Values() {
		if it.Auxiliary()%2 == 0 {
			tr.Delete(it)
		}
	}
	require.NoError(t, tr.Verify())

	var expected []int
	for i := 1; i < 100; i += 2 {
		expected = append(expected, i)
	}
	assert.Equal(t, expected, auxiliaries(tr.Values()))
}

func Test_AtAndIndex(t *testing.T) {
	const n = 500
	var tr tree
	for i := range n {
		tr.Insert(int32B(rand.IntN(n)), i)
	}

	all := slices.Collect(tr.Values())
	for i, it := range all {
		assert.Same(t, it, tr.At(i))
		assert.Equal(t, i, tr.Index(it))
	}

	assert.Panics(t, func() { tr.At(-1) })
	assert.Panics(t, func() { tr.At(n) })
}

func Test_NextAndPrev(t *testing.T) {
	var tr tree
	for i := range 200 {
		tr.Insert(int32B(199-i), i)
	}

	all := slices.Collect(tr.Values())
	assert.Same(t, all[0], tr.First())
	assert.Same(t, all[len(all)-1], tr.Last())
	for i, it := range all {
		if i > 0 {
			assert.Same(t, all[i-1], rankedtree.Prev(it))
		} else {
			assert.Nil(t, rankedtree.Prev(it))
		}
		if i < len(all)-1 {
			assert.Same(t, all[i+1], rankedtree.Next(it))
		} else {
			assert.Nil(t, rankedtree.Next(it))
		}
	}

	assert.Equal(t, auxiliaries(slices.Values(all[150:])), auxiliaries(rankedtree.ValuesFrom(all[150])))
	assert.Empty(t, auxiliaries(rankedtree.ValuesFrom[int32B, int, int](nil)))
}

func Test_SetRank(t *testing.T) {
	var tr tree
	items := make([]*node, 10)
	for i := range items {
		items[i] = tr.Insert(int32B(i), i)
		items[i].Value = i * 10
	}

	moved := tr.SetRank(items[0], 100)
	assert.False(t, items[0].Present())
	assert.True(t, moved.Present())
	assert.Equal(t, 0, moved.Auxiliary())
	assert.Equal(t, 0, moved.Value)
	assert.Equal(t, int32B(100), moved.Rank())
	assert.Same(t, moved, tr.Last())

	moved = tr.SetRank(items[5], -1)
	assert.Equal(t, 50, moved.Value)
	assert.Same(t, moved, tr.First())

	require.NoError(t, tr.Verify())
	assert.Equal(t, []int{5, 1, 2, 3, 4, 6, 7, 8, 9, 0}, auxiliaries(tr.Values()))
}

func Test_Clear(t *testing.T) {
	var tr tree
	items := make([]*node, 100)
	for i := range items {
		items[i] = tr.Insert(int32B(i), i)
	}
	tr.Clear()
	assert.Zero(t, tr.Len())
	for _, it := range items {
		assert.False(t, it.Present())
	}
	assert.NoError(t, tr.Verify())
}

func Test_SortedInsertStaysShallow(t *testing.T) {
	const n = 1 << 16

	for _, order := range []string{"ascending", "descending"} {
		t.Run(order, func(t *testing.T) {
			rnd := rand.New(rand.NewPCG(1, 2))
			tr := rankedtree.NewWithPriority[int32B, int, int](rnd.Uint64)
			for i := range n {
				r := int32B(i)
				if order == "descending" {
					r = n - r
				}
				tr.Insert(r, i)
			}
			require.NoError(t, tr.Verify())

			// expected height is about 3*ln(n)
			bound := int(6 * math.Log(n))
			assert.Less(t, tr.Height(), bound)

			for range n / 2 {
				tr.DeleteFirst()
			}
			require.NoError(t, tr.Verify())
			assert.Less(t, tr.Height(), bound)
		})
	}
}

func Test_EqualPriorities(t *testing.T) {
	rnd := rand.New(rand.NewPCG(3, 4))
	tr := rankedtree.NewWithPriority[int32B, int, int](func() uint64 { return 7 })
	for i := range 100 {
		tr.Insert(int32B(rnd.IntN(20)), i)
	}
	require.NoError(t, tr.Verify())
	for range 50 {
		tr.Delete(tr.Random(rnd))
		require.NoError(t, tr.Verify())
	}
	assert.Equal(t, 50, tr.Len())
}

func makeCore(log LogFunc) func(t *testing.T, seed uint64, variance int) {
	type refItem struct {
		Rank int32B
		Seq  int
		Aux  int
	}

	type stats struct {
		Seed uint64
		Variance,
		MaxRank, Iterations,
		FinalLen, MaxLen, Height,
		Insert, DeleteRandom, DeleteFirst, SetRank, Locate int
	}

	cmpRankThenSeq := func(a, b refItem) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	}

	return func(t *testing.T, seed uint64, variance int) {
		if variance < 1 {
			return
		}

		rnd := rand.New(rand.NewPCG(seed, 0))
		tr := rankedtree.NewWithPriority[int32B, int, int](rnd.Uint64)
		ref := make(map[int]*refItem)
		var seq, nextAux int

		maxRank := rnd.IntN(variance) + 1
		iterations := rnd.IntN(variance) + 1
		s := stats{
			Seed:       seed,
			Variance:   variance,
			MaxRank:    maxRank,
			Iterations: iterations,
		}

		insert := func() bool {
			r := int32B(rnd.IntN(maxRank))
			seq++
			it := tr.Insert(r, nextAux)
			it.Value = seq
			ref[nextAux] = &refItem{r, seq, nextAux}
			nextAux++
			s.Insert++
			s.MaxLen = max(s.MaxLen, tr.Len())
			return true
		}

		deleteRandom := func() bool {
			if tr.Len() == 0 {
				return false
			}
			it := tr.Random(rnd)
			tr.Delete(it)
			delete(ref, it.Auxiliary())
			s.DeleteRandom++
			return true
		}

		deleteFirst := func() bool {
			if tr.Len() == 0 {
				return false
			}
			it := tr.First()
			tr.DeleteFirst()
			delete(ref, it.Auxiliary())
			s.DeleteFirst++
			return true
		}

		setRank := func() bool {
			if tr.Len() == 0 {
				return false
			}
			r := int32B(rnd.IntN(maxRank))
			seq++
			it := tr.SetRank(tr.Random(rnd), r)
			it.Value = seq
			ri := ref[it.Auxiliary()]
			ri.Rank = r
			ri.Seq = seq
			s.SetRank++
			return true
		}

		locate := func() bool {
			if tr.Len() == 0 {
				return false
			}
			i := rnd.IntN(tr.Len())
			it := tr.At(i)
			assert.Equal(t, i, tr.Index(it))
			s.Locate++
			return true
		}

		runMulti := func(core func() bool) {
			for range rnd.IntN(10) + 1 {
				if iterations <= 0 || !core() {
					return
				}
				iterations--
				if s.Iterations < 2000 {
					require.NoError(t, tr.Verify())
				}
			}
		}

		for iterations > 0 {
			if tr.Len() == 0 {
				runMulti(insert)
			} else {
				switch rnd.IntN(8) {
				case 0:
					runMulti(deleteRandom)
				case 1:
					runMulti(deleteFirst)
				case 2:
					runMulti(setRank)
				case 3:
					runMulti(locate)
				default:
					runMulti(insert)
				}
			}
		}

		s.FinalLen = tr.Len()
		s.Height = tr.Height()

		sStr, _ := json.Marshal(s)
		log(t, sStr)

		require.NoError(t, tr.Verify())

		s1 := slices.SortedFunc(func(yield func(refItem) bool) {
			for ri := range maps.Values(ref) {
				if !yield(*ri) {
					return
				}
			}
		}, cmpRankThenSeq)

		var s2 []refItem
		for it := range tr.Values() {
			s2 = append(s2, refItem{it.Rank(), it.Value, it.Auxiliary()})
		}

		assert.Equal(t, len(s1), tr.Len())
		if len(s1) > 0 {
			assert.Equal(t, s1, s2)
		}
	}
}

func Fuzz_Multi(f *testing.F) {
	f.Add(uint64(1), 10)
	f.Add(uint64(2), 1000)
	f.Add(uint64(3), 5000)
	f.Fuzz(makeCore(makeLogFunc(logFile)))
}
