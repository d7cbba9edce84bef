package cfg

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
)

// Liveness holds, for every block, the set of variable symbol IDs that may
// be read before being written on some path starting at the block.
type Liveness struct {
	in  []*roaring.Bitmap
	out []*roaring.Bitmap
}

// LiveIn returns the symbol IDs live at entry of b. The bitmap must not be
// modified.
func (l *Liveness) LiveIn(b *Block) *roaring.Bitmap {
	return l.in[b.ID]
}

func (l *Liveness) LiveOut(b *Block) *roaring.Bitmap {
	return l.out[b.ID]
}

func (l *Liveness) IsLiveIn(b *Block, sym *semantic.Symbol) bool {
	return l.in[b.ID].Contains(uint32(sym.ID))
}

// LiveVariables runs a backward may-liveness analysis over the symbols
// the graph was built with.
func (g *CFG) LiveVariables() *Liveness {
	info := g.info
	if info == nil {
		info = semantic.None
	}
	n := len(g.Blocks)
	use := make([]*roaring.Bitmap, n)
	def := make([]*roaring.Bitmap, n)
	l := &Liveness{in: make([]*roaring.Bitmap, n), out: make([]*roaring.Bitmap, n)}
	for _, b := range g.Blocks {
		use[b.ID], def[b.ID] = useDef(b, info)
		l.in[b.ID] = use[b.ID].Clone()
		l.out[b.ID] = roaring.New()
	}

	for changed := true; changed; {
		changed = false
		for i := n - 1; i >= 0; i-- {
			b := g.Blocks[i]
			out := roaring.New()
			for _, succ := range successorsOf(b) {
				out.Or(l.in[succ.ID])
			}
			in := out.Clone()
			in.AndNot(def[b.ID])
			in.Or(use[b.ID])
			if !in.Equals(l.in[b.ID]) {
				l.in[b.ID] = in
				changed = true
			}
			l.out[b.ID] = out
		}
	}
	return l
}

type useDefSets struct {
	info semantic.Info
	use  *roaring.Bitmap
	def  *roaring.Bitmap
}

func (s *useDefSets) read(sym *semantic.Symbol) {
	if sym == nil || !sym.IsVariable() {
		return
	}
	if id := uint32(sym.ID); !s.def.Contains(id) {
		s.use.Add(id)
	}
}

func (s *useDefSets) write(sym *semantic.Symbol) {
	if sym == nil || !sym.IsVariable() {
		return
	}
	s.def.Add(uint32(sym.ID))
}

// captures marks every variable read inside a lambda or anonymous class
// body as used where the closure is created.
func (s *useDefSets) captures(body *parser.Node) {
	parser.Walk(body, func(n *parser.Node) bool {
		if n.Kind == parser.KindIdentifier {
			if sym := s.info.SymbolOf(n); sym != nil && sym.Decl != n {
				s.read(sym)
			}
		}
		return true
	})
}

func useDef(b *Block, info semantic.Info) (*roaring.Bitmap, *roaring.Bitmap) {
	s := &useDefSets{info: info, use: roaring.New(), def: roaring.New()}
	for _, e := range b.Elements {
		switch e.Kind {
		case parser.KindIdentifier, parser.KindFieldAccess:
			s.read(info.SymbolOf(e))
		case parser.KindAssignExpr:
			target := info.SymbolOf(parser.Unparen(e.Child(0)))
			if e.Operator() != "=" {
				s.read(target)
			}
			s.write(target)
		case parser.KindUnaryExpr, parser.KindPostfixExpr:
			switch e.Operator() {
			case "++", "--":
				s.write(info.SymbolOf(parser.Unparen(e.Operand())))
			}
		case parser.KindVariableDeclarator:
			s.write(info.SymbolOf(e.DeclaredName()))
		case parser.KindCatchClause:
			s.write(info.SymbolOf(e))
		case parser.KindTypePattern:
			s.write(info.SymbolOf(e.Child(1)))
		case parser.KindInstanceofExpr:
			if id := e.Child(2); id != nil {
				s.write(info.SymbolOf(id))
			}
		case parser.KindLambdaExpr:
			s.captures(e.Child(1))
		case parser.KindNewExpr:
			if body := e.ClassBody(); body != nil {
				s.captures(body)
			}
		}
	}
	return s.use, s.def
}
