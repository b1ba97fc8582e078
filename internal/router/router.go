package router

import (
	"net/http"
	"strings"

	"github.com/taskpop/backend/internal/auth"
	"github.com/taskpop/backend/internal/handlers"
	"github.com/taskpop/backend/internal/middleware"
)

// New returns an http.Handler that serves the API under /api/v1.
// Auth routes are public; everything else runs behind session auth.
func New(authHandler *auth.Handler, taskHandler *handlers.TaskHandler, walletHandler *handlers.WalletHandler, streamHandler *handlers.StreamHandler, validator middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc(base+"/auth/register", authHandler.Register)
	mux.HandleFunc(base+"/auth/login", authHandler.Login)

	requireAuth := middleware.SessionAuth(validator)
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(h).ServeHTTP
	}

	mux.HandleFunc(base+"/tasks", protect(tasksCollection(taskHandler)))
	mux.HandleFunc(base+"/tasks/stream", protect(methodGET(streamHandler.StreamTasks)))
	mux.HandleFunc(base+"/tasks/", protect(taskItem(taskHandler)))

	mux.HandleFunc(base+"/wallet", protect(methodGET(walletHandler.GetWallet)))
	mux.HandleFunc(base+"/wallet/ledger", protect(methodGET(walletHandler.ListLedger)))
	mux.HandleFunc(base+"/wallet/stream", protect(methodGET(streamHandler.StreamWallet)))
	mux.HandleFunc(base+"/account/settings", protect(methodPATCH(walletHandler.UpdateSettings)))

	return mux
}

func tasksCollection(h *handlers.TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.CreateTask(w, r)
		case http.MethodGet:
			h.ListTasks(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// taskItem dispatches /tasks/{id} and the /tasks/{id}/{action} subroutes.
func taskItem(h *handlers.TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
		parts := strings.SplitN(rest, "/", 2)

		if len(parts) == 1 || parts[1] == "" {
			switch r.Method {
			case http.MethodGet:
				h.GetTask(w, r)
			case http.MethodDelete:
				h.DeleteTask(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "claim":
			h.ClaimTask(w, r)
		case "done":
			h.MarkDone(w, r)
		case "confirm":
			h.ConfirmAndRate(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPATCH(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
