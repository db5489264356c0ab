// Package blockdiff compares two parsed versions of a plan block by block.
package blockdiff

import (
	"planmark/api/internal/blocks"
)

// DefaultModifyThreshold is the minimum similarity for pairing a removed and an
// added block as one modification.
const DefaultModifyThreshold = 0.5

// similarityEpsilon absorbs float rounding in 1 - dist/longest so a score
// that is exactly the threshold in decimal still pairs.
const similarityEpsilon = 1e-9

// RowType classifies a diff row.
type RowType string

const (
	RowUnchanged RowType = "unchanged"
	RowAdded     RowType = "added"
	RowRemoved   RowType = "removed"
	RowModified  RowType = "modified"
)

// BlockDiff is one row of a structural comparison. OldBlock is nil for added
// rows, NewBlock is nil for removed rows. Similarity is set for every modified
// row, including a score of 0, and nil otherwise.
type BlockDiff struct {
	Type       RowType       `json:"type"`
	OldBlock   *blocks.Block `json:"oldBlock,omitempty"`
	NewBlock   *blocks.Block `json:"newBlock,omitempty"`
	Similarity *float64      `json:"similarity,omitempty"`
}

// Summary tallies diff rows by type.
type Summary struct {
	Unchanged int `json:"unchanged"`
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
}

// Diff compares two block lists with DefaultModifyThreshold.
func Diff(oldBlocks, newBlocks []blocks.Block) []BlockDiff {
	return DiffWithThreshold(oldBlocks, newBlocks, DefaultModifyThreshold)
}

// DiffWithThreshold compares two block lists. Blocks equal in type and content
// and in the same relative order are unchanged. Leftover blocks of the same type
// are greedily paired as modified when their similarity reaches threshold, in
// old-block order. Removed rows come first, followed by one row per new block in
// new-document order.
func DiffWithThreshold(oldBlocks, newBlocks []blocks.Block, threshold float64) []BlockDiff {
	oldKeys := blockKeys(oldBlocks)
	newKeys := blockKeys(newBlocks)

	oldMatch := make([]int, len(oldBlocks))
	newMatch := make([]int, len(newBlocks))
	for i := range oldMatch {
		oldMatch[i] = -1
	}
	for j := range newMatch {
		newMatch[j] = -1
	}
	for _, pair := range longestCommonSubsequence(oldKeys, newKeys) {
		oldMatch[pair[0]] = pair[1]
		newMatch[pair[1]] = pair[0]
	}

	type pairing struct {
		old        int
		similarity float64
	}
	modifiedByNew := make(map[int]pairing)
	pairedOld := make([]bool, len(oldBlocks))
	for i := range oldBlocks {
		if oldMatch[i] >= 0 {
			continue
		}
		best := -1
		bestScore := 0.0
		for j := range newBlocks {
			if newMatch[j] >= 0 {
				continue
			}
			if _, used := modifiedByNew[j]; used {
				continue
			}
			if newBlocks[j].Type != oldBlocks[i].Type {
				continue
			}
			score := Similarity(oldBlocks[i].Content, newBlocks[j].Content)
			if score >= threshold-similarityEpsilon && (best < 0 || score > bestScore) {
				best = j
				bestScore = score
			}
		}
		if best >= 0 {
			modifiedByNew[best] = pairing{old: i, similarity: bestScore}
			pairedOld[i] = true
		}
	}

	rows := make([]BlockDiff, 0, len(oldBlocks)+len(newBlocks))
	for i := range oldBlocks {
		if oldMatch[i] < 0 && !pairedOld[i] {
			rows = append(rows, BlockDiff{Type: RowRemoved, OldBlock: &oldBlocks[i]})
		}
	}
	for j := range newBlocks {
		if i := newMatch[j]; i >= 0 {
			rows = append(rows, BlockDiff{Type: RowUnchanged, OldBlock: &oldBlocks[i], NewBlock: &newBlocks[j]})
			continue
		}
		if p, ok := modifiedByNew[j]; ok {
			similarity := p.similarity
			rows = append(rows, BlockDiff{Type: RowModified, OldBlock: &oldBlocks[p.old], NewBlock: &newBlocks[j], Similarity: &similarity})
			continue
		}
		rows = append(rows, BlockDiff{Type: RowAdded, NewBlock: &newBlocks[j]})
	}
	return rows
}

// Summarize counts rows per type.
func Summarize(rows []BlockDiff) Summary {
	var summary Summary
	for _, row := range rows {
		switch row.Type {
		case RowUnchanged:
			summary.Unchanged++
		case RowAdded:
			summary.Added++
		case RowRemoved:
			summary.Removed++
		case RowModified:
			summary.Modified++
		}
	}
	return summary
}

type blockKey struct {
	hash uint32
	text string
}

func blockKeys(list []blocks.Block) []blockKey {
	keys := make([]blockKey, len(list))
	for i, block := range list {
		text := string(block.Type) + ":" + block.Content
		keys[i] = blockKey{hash: djb2(text), text: text}
	}
	return keys
}

func djb2(value string) uint32 {
	var hash uint32 = 5381
	for i := 0; i < len(value); i++ {
		hash = hash*33 + uint32(value[i])
	}
	return hash
}

// longestCommonSubsequence returns matching (old, new) index pairs in order.
func longestCommonSubsequence(a, b []blockKey) [][2]int {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}
	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	pairs := make([][2]int, table[m][n])
	k := len(pairs) - 1
	for i, j := m, n; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			pairs[k] = [2]int{i - 1, j - 1}
			k--
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	return pairs
}
