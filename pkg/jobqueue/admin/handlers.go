package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/logger"
)

func (a *API) listEnvelopes(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	envs, err := a.repo.ListEnvelopes(r.Context(), filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	now := a.now()
	views := make([]envelopeView, 0, len(envs))
	for i := range envs {
		views = append(views, newEnvelopeView(&envs[i], now))
	}
	a.writeJSON(w, r, http.StatusOK, newListView(views))
}

func (a *API) peekEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := envelopeID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	job, err := a.repo.Peek(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, jobView{
		envelopeView: newEnvelopeView(&job.Envelope, a.now()),
		Payload:      job.Payload,
	})
}

func (a *API) deleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := envelopeID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.repo.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.logger.InfoContext(r.Context(), "envelope deleted by operator", logger.EnvelopeID(id))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) pauseEnvelope(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := envelopeID(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if err := a.repo.SetPaused(r.Context(), id, paused); err != nil {
			a.writeError(w, r, err)
			return
		}
		a.logger.InfoContext(r.Context(), "envelope pause changed",
			logger.EnvelopeID(id), slog.Bool("paused", paused))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) retryEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := envelopeID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	delay, err := parseDelay(r.URL.Query())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.repo.UpdateForRetry(r.Context(), id, a.now().Add(delay)); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) histogram(w http.ResponseWriter, r *http.Request) {
	stats, err := a.repo.Histogram(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, newListView(stats))
}

func (a *API) countQueued(w http.ResponseWriter, r *http.Request) {
	wt := workTypeParam(r)
	n, err := a.repo.CountQueued(r.Context(), wt)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, countView{WorkType: wt, Count: n})
}

func (a *API) pauseWorkType(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wt := workTypeParam(r)
		n, err := a.repo.SetPausedByWorkType(r.Context(), wt, paused)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.logger.InfoContext(r.Context(), "work type pause changed",
			logger.WorkType(string(wt)), slog.Bool("paused", paused), slog.Int64("envelopes", n))
		a.writeJSON(w, r, http.StatusOK, countView{WorkType: wt, Count: n})
	}
}

func (a *API) deleteWorkType(w http.ResponseWriter, r *http.Request) {
	wt := workTypeParam(r)
	n, err := a.repo.DeleteByWorkType(r.Context(), wt)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.logger.WarnContext(r.Context(), "work type purged by operator",
		logger.WorkType(string(wt)), slog.Int64("envelopes", n))
	a.writeJSON(w, r, http.StatusOK, countView{WorkType: wt, Count: n})
}

func (a *API) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := a.repo.ListWorkers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, newListView(workers))
}

func (a *API) listLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := a.repo.ListNamedLocks(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, newListView(locks))
}

func (a *API) listFailures(w http.ResponseWriter, r *http.Request) {
	if a.failures == nil {
		a.writeError(w, r, ErrNoFailureStore)
		return
	}
	q := r.URL.Query()
	limit := int64(100)
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > maxListLimit {
			a.writeError(w, r, ErrInvalidFilter)
			return
		}
		limit = n
	}
	recs, err := a.failures.Recent(r.Context(), jobqueue.WorkType(q.Get("work_type")), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, newListView(recs))
}
