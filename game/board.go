package game

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

// Size is the board edge length.
const Size = 4

// SpawnChance4 is the probability that a spawned tile is a 4 instead of a 2.
const SpawnChance4 = 0.1

type Move int

const (
	Up Move = iota
	Down
	Left
	Right
)

// Moves lists all directions in their canonical action order: the action
// indices 0..3 map onto Up, Down, Left, Right.
var Moves = [4]Move{Up, Down, Left, Right}

func (m Move) String() string {
	switch m {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("move(%d)", int(m))
	}
}

// Board is a 4x4 grid of tile values. A zero cell is empty; any other cell
// holds a power of two >= 2. Board is a comparable value type: copies are
// cheap and equality is ==.
type Board [Size][Size]int

// MoveResult is the outcome of applying a move before any tile spawns.
// Moved is false iff the move left every cell unchanged, in which case the
// move is illegal and must not trigger a spawn.
type MoveResult struct {
	Board Board
	Score int
	Moved bool
}

// Apply slides and merges the board in the given direction. Each line is
// compacted toward the move direction, adjacent equal pairs merge once per
// tile, and the merge gaps are compacted again. The score is the sum of the
// merged result values (two 2s merging adds 4).
func Apply(b Board, m Move) MoveResult {
	var next Board
	score := 0

	switch m {
	case Left:
		for r := 0; r < Size; r++ {
			line, pts := mergeLine(b[r])
			next[r] = line
			score += pts
		}
	case Right:
		for r := 0; r < Size; r++ {
			line, pts := mergeLine(reverseLine(b[r]))
			next[r] = reverseLine(line)
			score += pts
		}
	case Up:
		for c := 0; c < Size; c++ {
			line, pts := mergeLine(column(b, c))
			setColumn(&next, c, line)
			score += pts
		}
	case Down:
		for c := 0; c < Size; c++ {
			line, pts := mergeLine(reverseLine(column(b, c)))
			setColumn(&next, c, reverseLine(line))
			score += pts
		}
	}

	return MoveResult{Board: next, Score: score, Moved: next != b}
}

// mergeLine compacts a line toward index 0, merges each adjacent equal pair
// at most once, and compacts again. Returns the new line and the merge score.
func mergeLine(line [Size]int) ([Size]int, int) {
	compact := make([]int, 0, Size)
	for _, v := range line {
		if v != 0 {
			compact = append(compact, v)
		}
	}

	var out [Size]int
	score := 0
	n := 0
	for i := 0; i < len(compact); i++ {
		if i+1 < len(compact) && compact[i] == compact[i+1] {
			merged := compact[i] * 2
			out[n] = merged
			score += merged
			i++ // The merged tile cannot merge again this move
		} else {
			out[n] = compact[i]
		}
		n++
	}
	return out, score
}

func reverseLine(line [Size]int) [Size]int {
	return [Size]int{line[3], line[2], line[1], line[0]}
}

func column(b Board, c int) [Size]int {
	var line [Size]int
	for r := 0; r < Size; r++ {
		line[r] = b[r][c]
	}
	return line
}

func setColumn(b *Board, c int, line [Size]int) {
	for r := 0; r < Size; r++ {
		b[r][c] = line[r]
	}
}

// Spawn places a single new tile on a uniformly random empty cell: a 2 with
// probability 0.9, a 4 otherwise. A full board is returned unchanged with
// spawned=false.
func Spawn(b Board, rng *rand.Rand) (Board, bool) {
	empty := EmptyCells(b)
	if len(empty) == 0 {
		return b, false
	}

	cell := empty[rng.Intn(len(empty))]
	value := 2
	if rng.Float64() < SpawnChance4 {
		value = 4
	}
	b[cell[0]][cell[1]] = value
	return b, true
}

// EmptyCells returns the [row, col] coordinates of every empty cell.
func EmptyCells(b Board) [][2]int {
	var empty [][2]int
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == 0 {
				empty = append(empty, [2]int{r, c})
			}
		}
	}
	return empty
}

// LegalMoves returns the directions whose application changes the board,
// always in the canonical move order.
func LegalMoves(b Board) []Move {
	var moves []Move
	for _, m := range Moves {
		if Apply(b, m).Moved {
			moves = append(moves, m)
		}
	}
	return moves
}

// Terminal reports whether no move can change the board: every cell is
// occupied and no two equal tiles are adjacent horizontally or vertically.
func Terminal(b Board) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == 0 {
				return false
			}
			if c+1 < Size && b[r][c] == b[r][c+1] {
				return false
			}
			if r+1 < Size && b[r][c] == b[r+1][c] {
				return false
			}
		}
	}
	return true
}

// Highest returns the largest tile value on the board.
func Highest(b Board) int {
	highest := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] > highest {
				highest = b[r][c]
			}
		}
	}
	return highest
}

// Validate reports a contract violation if any cell holds a value that is
// neither empty nor a power of two >= 2.
func Validate(b Board) error {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			v := b[r][c]
			if v == 0 {
				continue
			}
			if v < 2 || v&(v-1) != 0 {
				return fmt.Errorf("invalid tile %d at (%d,%d): cells must be empty or a power of two >= 2", v, r, c)
			}
		}
	}
	return nil
}

func (b Board) String() string {
	rule := "+------+------+------+------+"
	var sb strings.Builder
	sb.WriteString(rule)
	sb.WriteByte('\n')
	for r := 0; r < Size; r++ {
		sb.WriteByte('|')
		for c := 0; c < Size; c++ {
			if b[r][c] == 0 {
				sb.WriteString("      |")
			} else {
				fmt.Fprintf(&sb, "%5d |", b[r][c])
			}
		}
		sb.WriteByte('\n')
		sb.WriteString(rule)
		sb.WriteByte('\n')
	}
	return sb.String()
}
