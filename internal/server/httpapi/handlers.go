package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/server/services"
	"github.com/dmitrijs2005/polvault/internal/server/shared"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, api.PingResponse{Status: "OK"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st, err := s.accounts.Status(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.StatusResponse{Configured: st.Configured, RequiresSetup: st.RequiresSetup})
}

func (s *Server) setup(w http.ResponseWriter, r *http.Request) {
	var req api.SetupRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := s.accounts.Setup(r.Context(), services.SetupInput{
		Password:      req.Password,
		SecretPayload: req.SecretPayload,
		Policy:        shared.FromAPIPolicy(req.SecurityPolicy),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.SetupResponse{User: shared.ToAPIUser(*user)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	res, err := s.accounts.Login(r.Context(), req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         shared.ToAPIUser(res.User),
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	access, err := s.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.RefreshResponse{AccessToken: access})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req api.LogoutRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	if err := s.accounts.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.LogoutResponse{})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" {
		writeError(w, http.StatusBadRequest, "current password is required")
		return
	}

	if err := s.accounts.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.ChangePasswordResponse{})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req api.ResetRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.accounts.Reset(r.Context(), req.Confirmation); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.ResetResponse{})
}

func (s *Server) backup(w http.ResponseWriter, r *http.Request) {
	var req api.BackupRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	handle, err := s.accounts.CreateBackup(r.Context(), req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.BackupResponse{Handle: handle})
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	var req api.RestoreRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Handle == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "backup file and password are required")
		return
	}

	user, err := s.accounts.RestoreBackup(r.Context(), req.Handle, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, api.RestoreResponse{User: shared.ToAPIUser(*user)})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.accounts.StorageStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, shared.ToAPIStats(stats))
}
