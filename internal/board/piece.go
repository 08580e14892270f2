package board

// Color represents the side a piece belongs to.
type Color uint8

const (
	Red Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Red:
		return "Red"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// PieceType represents the type of a xiangqi piece.
// The numbering is part of the NNUE feature layout and must not change.
type PieceType uint8

const (
	King PieceType = iota
	Guard
	Bishop
	Knight
	Rook
	Cannon
	Pawn
	NoPieceType PieceType = 7
)

// NumPieceTypes is the number of distinct piece types.
const NumPieceTypes = 7

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case King:
		return "King"
	case Guard:
		return "Guard"
	case Bishop:
		return "Bishop"
	case Knight:
		return "Knight"
	case Rook:
		return "Rook"
	case Cannon:
		return "Cannon"
	case Pawn:
		return "Pawn"
	default:
		return "None"
	}
}

// Char returns the FEN character for the piece type (lowercase).
func (pt PieceType) Char() byte {
	chars := []byte{'k', 'a', 'b', 'n', 'r', 'c', 'p', ' '}
	if pt > NoPieceType {
		return ' '
	}
	return chars[pt]
}

// Piece combines PieceType and Color into a single value.
// Encoded as: pieceType + color*7
type Piece uint8

const (
	RedKing     Piece = Piece(King) + Piece(Red)*7
	RedGuard    Piece = Piece(Guard) + Piece(Red)*7
	RedBishop   Piece = Piece(Bishop) + Piece(Red)*7
	RedKnight   Piece = Piece(Knight) + Piece(Red)*7
	RedRook     Piece = Piece(Rook) + Piece(Red)*7
	RedCannon   Piece = Piece(Cannon) + Piece(Red)*7
	RedPawn     Piece = Piece(Pawn) + Piece(Red)*7
	BlackKing   Piece = Piece(King) + Piece(Black)*7
	BlackGuard  Piece = Piece(Guard) + Piece(Black)*7
	BlackBishop Piece = Piece(Bishop) + Piece(Black)*7
	BlackKnight Piece = Piece(Knight) + Piece(Black)*7
	BlackRook   Piece = Piece(Rook) + Piece(Black)*7
	BlackCannon Piece = Piece(Cannon) + Piece(Black)*7
	BlackPawn   Piece = Piece(Pawn) + Piece(Black)*7
	NoPiece     Piece = 14
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*7
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 7)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 7)
}

// String returns the FEN character for the piece.
// Uppercase for red, lowercase for black.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	chars := "KABNRCPkabnrcp"
	return string(chars[p])
}

// PieceFromChar converts a FEN character to a Piece.
// Both the WXF letters (B, N) and the alternative letters (E, H) are accepted.
func PieceFromChar(c byte) Piece {
	switch c {
	case 'K':
		return RedKing
	case 'A':
		return RedGuard
	case 'B', 'E':
		return RedBishop
	case 'N', 'H':
		return RedKnight
	case 'R':
		return RedRook
	case 'C':
		return RedCannon
	case 'P':
		return RedPawn
	case 'k':
		return BlackKing
	case 'a':
		return BlackGuard
	case 'b', 'e':
		return BlackBishop
	case 'n', 'h':
		return BlackKnight
	case 'r':
		return BlackRook
	case 'c':
		return BlackCannon
	case 'p':
		return BlackPawn
	default:
		return NoPiece
	}
}
