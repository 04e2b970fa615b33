package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"palworld-save-edit/gvas"
	"palworld-save-edit/palworld"
)

// Server exposes a session's players over HTTP.
type Server struct {
	session    *palworld.Session
	httpRouter *httprouter.Router
	filters    *filterCache
}

func New(session *palworld.Session) *Server {
	s := &Server{session: session, filters: newFilterCache(256)}
	s.initHTTP()
	return s
}

func (s *Server) initHTTP() {
	s.httpRouter = httprouter.New()
	s.httpRouter.GET("/v1/status", s.serveStatus)
	s.httpRouter.GET("/v1/players", s.servePlayers)
	s.httpRouter.GET("/v1/players/:uid", s.servePlayer)
	s.httpRouter.GET("/v1/players/:uid/pals", s.servePals)
	s.httpRouter.PATCH("/v1/players/:uid", s.updatePlayer)
	s.httpRouter.PATCH("/v1/pals/:id", s.updatePal)
	s.httpRouter.POST("/v1/load", s.load)
	s.httpRouter.POST("/v1/save", s.save)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Printf("%v %v", req.Method, req.URL)

	s.httpRouter.ServeHTTP(w, req)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	})
}

// statusOf maps session and codec errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, palworld.ErrNoDocument):
		return http.StatusServiceUnavailable
	case errors.Is(err, palworld.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gvas.ErrIo):
		return http.StatusBadRequest
	}
	if _, ok := gvas.KindOf(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) servePlayers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	players, err := s.session.Players()
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	players, err = s.filters.players(r.URL.Query().Get("where"), players)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) player(w http.ResponseWriter, ps httprouter.Params) (palworld.Player, bool) {
	uid, err := uuid.Parse(ps.ByName("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid player uid: %w", err))
		return palworld.Player{}, false
	}
	projection, err := s.session.Projection()
	if err != nil {
		writeError(w, statusOf(err), err)
		return palworld.Player{}, false
	}
	player, ok := projection.Player(uid)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("player %s not found", uid))
		return palworld.Player{}, false
	}
	return player, true
}

func (s *Server) servePlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if player, ok := s.player(w, ps); ok {
		writeJSON(w, http.StatusOK, player)
	}
}

func (s *Server) servePals(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	player, ok := s.player(w, ps)
	if !ok {
		return
	}
	pals, err := s.filters.pals(r.URL.Query().Get("where"), player.Pals)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, pals)
}

type characterPatch struct {
	Nickname *string `json:"nickname"`
	Level    *int64  `json:"level"`
}

func (p characterPatch) apply(paths palworld.Paths) func(*gvas.Tree) error {
	return func(params *gvas.Tree) error {
		if p.Nickname != nil {
			if err := palworld.SetNickname(paths, *p.Nickname)(params); err != nil {
				return err
			}
		}
		if p.Level != nil {
			if err := palworld.SetLevel(paths, *p.Level)(params); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request, id string, update func(doc *gvas.Document, id uuid.UUID, fn func(*gvas.Tree) error) error) {
	target, err := uuid.Parse(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}
	var body characterPatch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	fn := body.apply(s.session.Paths())
	_, err = s.session.Update(func(doc *gvas.Document) error {
		return update(doc, target, fn)
	})
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) updatePlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.patch(w, r, ps.ByName("uid"), func(doc *gvas.Document, id uuid.UUID, fn func(*gvas.Tree) error) error {
		return palworld.UpdatePlayer(doc, s.session.Paths(), id, fn, s.session.Options()...)
	})
}

func (s *Server) updatePal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.patch(w, r, ps.ByName("id"), func(doc *gvas.Document, id uuid.UUID, fn func(*gvas.Tree) error) error {
		return palworld.UpdateCharacter(doc, s.session.Paths(), id, fn, s.session.Options()...)
	})
}

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) load(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body pathRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeError(w, http.StatusBadRequest, errors.New("body must name a save path"))
		return
	}
	if _, err := s.session.Load(body.Path); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body pathRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
	}
	if err := s.session.Save(body.Path); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Status())
}
