package driver

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"tyinc/internal/hir"
	"tyinc/internal/project"
	"tyinc/internal/sema"
	"tyinc/internal/trace"
)

// Session is a loaded workspace and the database it was written into.
type Session struct {
	Path      string
	Workspace *project.Resolved
	DB        *sema.Database
}

// Options converts the configuration into database options.
func Options(cfg project.Config, logger *zap.Logger, tracer trace.Tracer) ([]sema.Option, error) {
	recovery, ok := sema.ParseSolverRecovery(strings.TrimSpace(cfg.Recovery.SolverCycle))
	if !ok {
		return nil, errors.Newf("invalid solver_cycle %q", cfg.Recovery.SolverCycle)
	}
	opts := []sema.Option{sema.WithSolverRecovery(recovery)}
	if logger != nil {
		opts = append(opts, sema.WithLogger(logger))
	}
	if tracer != nil {
		opts = append(opts, sema.WithTracer(tracer))
	}
	if cfg.Analysis.MaxTypeDepth > 0 {
		opts = append(opts, sema.WithMaxTypeDepth(cfg.Analysis.MaxTypeDepth))
	}
	return opts, nil
}

// Open loads the workspace at path into a fresh database.
func Open(path string, opts ...sema.Option) (*Session, error) {
	ws, err := project.LoadWorkspace(path)
	if err != nil {
		return nil, err
	}
	s := NewSession(ws, opts...)
	s.Path = path
	return s, nil
}

// NewSession writes an already resolved workspace into a fresh database.
func NewSession(ws *project.Resolved, opts ...sema.Option) *Session {
	db := sema.New(opts...)
	rev := ws.Apply(db)
	db.Logger().Debug("workspace applied",
		zap.Int("crates", len(ws.Graph.Crates)),
		zap.Int("items", len(ws.Items)),
		zap.Int("bodies", len(ws.Bodies)),
		zap.Stringer("revision", rev))
	return &Session{Workspace: ws, DB: db}
}

// CrateName returns the declared name of krate.
func (s *Session) CrateName(krate hir.CrateID) string {
	for _, c := range s.Workspace.Graph.Crates {
		if c.ID == krate {
			return c.Name
		}
	}
	return krate.String()
}

// Label names a definition the way a user would write it: `Type::method`
// for associated items, the plain name otherwise.
func (s *Session) Label(def hir.DefID) string {
	item := s.Workspace.Items[def]
	if item == nil {
		return def.String()
	}
	if !item.Container.IsValid() {
		return item.Name
	}
	return s.containerLabel(item.Container) + "::" + item.Name
}

func (s *Session) containerLabel(def hir.DefID) string {
	item := s.Workspace.Items[def]
	if item == nil {
		return def.String()
	}
	if item.Impl == nil {
		return item.Name
	}
	self := item.Impl.SelfTy
	switch self.Kind {
	case hir.TypeRefPath:
		if target := s.Workspace.Items[self.Def]; target != nil {
			return target.Name
		}
	case hir.TypeRefBuiltin:
		return self.Builtin
	}
	if item.Impl.Trait != nil {
		if trait := s.Workspace.Items[item.Impl.Trait.Trait.Def()]; trait != nil {
			return "<impl " + trait.Name + ">"
		}
	}
	return "<impl>"
}
