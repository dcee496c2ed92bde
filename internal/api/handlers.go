package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/model"
	"github.com/sells-group/trueprice/internal/session"
)

type recipeView struct {
	Key   model.Recipe `json:"key"`
	Name  string       `json:"name"`
	Image string       `json:"img,omitempty"`
}

type breakdownView struct {
	ServeID string                 `json:"serveId,omitempty"`
	Stages  []string               `json:"stages"`
	Roots   map[string]*model.Root `json:"roots"`
	Total   float64                `json:"total"`
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listRecipes(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Ensure(r.Context())
	if err != nil && cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", err.Error())
		return
	}
	out := []recipeView{}
	for _, rec := range cat.Recipes() {
		d := rec.Detail()
		out = append(out, recipeView{Key: rec, Name: d.Name, Image: d.Image})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) listSalePoints(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Ensure(r.Context())
	if err != nil && cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", err.Error())
		return
	}

	points := []model.SalePoint{}
	if key := r.URL.Query().Get("recipe"); key != "" {
		recipe, ok := model.ParseRecipe(key)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_recipe", "unknown recipe "+key)
			return
		}
		points = append(points, cat.SalePointsFor(recipe)...)
	} else {
		points = append(points, cat.SalePoints().All()...)
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		zap.L().Error("api: create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// withSession resolves the {id} path parameter and hands the session to fn.
func (s *server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session)) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no session "+chi.URLParam(r, "id"))
			return
		}
		zap.L().Error("api: get session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not load session")
		return
	}
	fn(sess)
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, sess.View())
	})
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if eris.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "no session "+chi.URLParam(r, "id"))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "could not delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) getBreakdown(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) {
		serveID, b := sess.Record()
		view := breakdownView{ServeID: serveID, Stages: []string{}, Roots: map[string]*model.Root{}}
		if !b.Empty() {
			view.Stages, view.Roots, view.Total = b.Stages, b.Roots, b.Total()
		}
		writeJSON(w, http.StatusOK, view)
	})
}

func (s *server) selectRecipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipe string `json:"recipe"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	recipe, ok := model.ParseRecipe(req.Recipe)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_recipe", "unknown recipe "+req.Recipe)
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.SelectRecipe(ctx, recipe)
	})
}

func (s *server) selectSalePoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SalePointID string `json:"salePointId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.SelectSalePoint(ctx, req.SalePointID)
	})
}

func (s *server) toggleCaffeine(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.ToggleCaffeine(ctx)
	})
}

func (s *server) setMilkType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MilkType string `json:"milkType"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	milk, ok := model.ParseMilkType(req.MilkType)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_milk_type", "unknown milk type "+req.MilkType)
		return
	}
	s.withSession(w, r, func(sess *session.Session) {
		applied, err := sess.SetMilkType(r.Context(), milk)
		if !applied {
			writeError(w, http.StatusConflict, "milk_unavailable", "milk type "+string(milk)+" is not offered for this selection")
			return
		}
		logRefresh(sess, err)
		writeJSON(w, http.StatusOK, sess.View())
	})
}

func (s *server) setSugarLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level *int `json:"level"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Level == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "level is required")
		return
	}
	s.mutate(w, r, func(_ context.Context, sess *session.Session) error {
		sess.SetSugarLevel(*req.Level)
		return nil
	})
}

func (s *server) clearSelection(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(_ context.Context, sess *session.Session) error {
		sess.Clear()
		return nil
	})
}

// mutate applies fn and responds with the updated view. Impact refresh
// failures do not fail the request; the quote falls back to an estimate.
func (s *server) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) error) {
	s.withSession(w, r, func(sess *session.Session) {
		logRefresh(sess, fn(r.Context(), sess))
		writeJSON(w, http.StatusOK, sess.View())
	})
}

func logRefresh(sess *session.Session, err error) {
	if err != nil {
		zap.L().Debug("api: impact refresh failed",
			zap.String("session_id", sess.ID()),
			zap.Error(err),
		)
	}
}
