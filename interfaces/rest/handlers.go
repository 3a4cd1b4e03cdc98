// Package rest exposes the data-access core over HTTP. Handlers stay
// thin: decode, call the repository, map the error taxonomy to a status.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gatherly-backend/internal/domain"
	"gatherly-backend/internal/repository"
)

// GroupHandler serves group and membership endpoints.
type GroupHandler struct {
	groups *repository.GroupRepository
	logger *zap.Logger
}

// NewGroupHandler creates a group handler.
func NewGroupHandler(groups *repository.GroupRepository, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateGroupInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	group, err := domain.NewGroup(input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.groups.CreateWithAdmin(r.Context(), group); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.Get(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input repository.UpdateGroupInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	group, err := h.groups.Update(r.Context(), chi.URLParam(r, "groupID"), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.Delete(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) Feed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.groups.Feed(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	member, err := h.groups.AddMember(r.Context(), chi.URLParam(r, "groupID"), body.UserID, body.Role)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.groups.RemoveMember(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.groups.ListMembers(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *GroupHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatedBy string `json:"created_by"`
		ExpiresAt string `json:"expires_at"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	invite, err := domain.NewInviteCode(chi.URLParam(r, "groupID"), body.CreatedBy, body.ExpiresAt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.groups.CreateInvite(r.Context(), invite); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (h *GroupHandler) DeleteInvite(w http.ResponseWriter, r *http.Request) {
	err := h.groups.DeleteInvite(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join redeems an invite code and adds the caller as a regular member.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	var body struct {
		Code   string `json:"code"`
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	if _, err := h.groups.GetInvite(r.Context(), groupID, body.Code); err != nil {
		writeError(w, h.logger, err)
		return
	}
	member, err := h.groups.AddMember(r.Context(), groupID, body.UserID, domain.RoleMember)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *GroupHandler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Year int    `json:"year"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	season, err := domain.NewSeason(chi.URLParam(r, "groupID"), body.Name, body.Year)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.groups.CreateSeason(r.Context(), season); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, season)
}

func (h *GroupHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.groups.ListSeasons(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

// GroupsForUser lists every membership of a user via the reverse index.
func (h *GroupHandler) GroupsForUser(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.groups.GroupsForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

// HangoutHandler serves hangout, child-item and pointer-sync endpoints.
type HangoutHandler struct {
	hangouts *repository.HangoutRepository
	sync     *repository.PointerSynchronizer
	logger   *zap.Logger
}

// NewHangoutHandler creates a hangout handler.
func NewHangoutHandler(hangouts *repository.HangoutRepository, sync *repository.PointerSynchronizer, logger *zap.Logger) *HangoutHandler {
	return &HangoutHandler{hangouts: hangouts, sync: sync, logger: logger}
}

func (h *HangoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateHangoutInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	hangout, err := domain.NewHangout(input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.hangouts.Create(r.Context(), hangout); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if result, err := h.sync.SyncHangoutPointer(r.Context(), hangout.HangoutID, hangout.GroupIDs); err != nil {
		h.logger.Warn("pointer sync after create failed", zap.Error(err))
	} else if len(result.Failed) > 0 {
		h.logger.Warn("pointer sync after create partially failed",
			zap.Strings("failed_groups", result.Failed))
	}
	writeJSON(w, http.StatusCreated, hangout)
}

func (h *HangoutHandler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.hangouts.Detail(r.Context(), chi.URLParam(r, "hangoutID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *HangoutHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input repository.UpdateHangoutInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	hangout, err := h.hangouts.Update(r.Context(), chi.URLParam(r, "hangoutID"), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.resync(r, hangout)
	writeJSON(w, http.StatusOK, hangout)
}

func (h *HangoutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hangoutID := chi.URLParam(r, "hangoutID")
	hangout, err := h.hangouts.Get(r.Context(), hangoutID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.hangouts.Delete(r.Context(), hangoutID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.sync.RemoveHangoutPointer(r.Context(), hangoutID, hangout.GroupIDs); err != nil {
		h.logger.Warn("pointer removal after delete failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HangoutHandler) Vote(w http.ResponseWriter, r *http.Request) {
	hangoutID := chi.URLParam(r, "hangoutID")
	var body struct {
		PollID   string `json:"poll_id"`
		OptionID string `json:"option_id"`
		UserID   string `json:"user_id"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	vote, err := domain.NewVote(hangoutID, body.PollID, body.OptionID, body.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.hangouts.SaveVote(r.Context(), vote); err != nil {
		writeError(w, h.logger, err)
		return
	}
	hangout, err := h.hangouts.Get(r.Context(), hangoutID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	for _, groupID := range hangout.GroupIDs {
		if err := h.sync.ApplyVote(r.Context(), groupID, hangoutID, vote); err != nil {
			h.logger.Warn("vote pointer patch failed",
				zap.String("group_id", groupID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, vote)
}

func (h *HangoutHandler) SetInterest(w http.ResponseWriter, r *http.Request) {
	hangoutID := chi.URLParam(r, "hangoutID")
	var body struct {
		UserID string `json:"user_id"`
		Level  string `json:"level"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	interest, err := domain.NewInterestLevel(hangoutID, body.UserID, body.Level)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.hangouts.SaveInterestLevel(r.Context(), interest); err != nil {
		writeError(w, h.logger, err)
		return
	}
	hangout, err := h.hangouts.Get(r.Context(), hangoutID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	for _, groupID := range hangout.GroupIDs {
		if err := h.sync.ApplyInterestLevel(r.Context(), groupID, hangoutID, body.UserID, body.Level); err != nil {
			h.logger.Warn("interest pointer patch failed",
				zap.String("group_id", groupID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, interest)
}

func (h *HangoutHandler) Resync(w http.ResponseWriter, r *http.Request) {
	hangoutID := chi.URLParam(r, "hangoutID")
	hangout, err := h.hangouts.Get(r.Context(), hangoutID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.sync.SyncHangoutPointer(r.Context(), hangoutID, hangout.GroupIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HangoutHandler) resync(r *http.Request, hangout *domain.Hangout) {
	result, err := h.sync.SyncHangoutPointer(r.Context(), hangout.HangoutID, hangout.GroupIDs)
	if err != nil {
		h.logger.Warn("pointer sync failed",
			zap.String("hangout_id", hangout.HangoutID), zap.Error(err))
		return
	}
	if len(result.Failed) > 0 {
		h.logger.Warn("pointer sync partially failed",
			zap.String("hangout_id", hangout.HangoutID),
			zap.Strings("failed_groups", result.Failed))
	}
}

// SeriesHandler serves event-series, idea-list and series-pointer
// endpoints.
type SeriesHandler struct {
	series *repository.SeriesRepository
	sync   *repository.PointerSynchronizer
	logger *zap.Logger
}

// NewSeriesHandler creates a series handler.
func NewSeriesHandler(series *repository.SeriesRepository, sync *repository.PointerSynchronizer, logger *zap.Logger) *SeriesHandler {
	return &SeriesHandler{series: series, sync: sync, logger: logger}
}

func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateSeriesInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	series, err := domain.NewEventSeries(input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.series.Create(r.Context(), series); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if result, err := h.sync.SyncSeriesPointer(r.Context(), series.SeriesID, series.GroupIDs); err != nil {
		h.logger.Warn("series pointer sync after create failed", zap.Error(err))
	} else if len(result.Failed) > 0 {
		h.logger.Warn("series pointer sync after create partially failed",
			zap.Strings("failed_groups", result.Failed))
	}
	writeJSON(w, http.StatusCreated, series)
}

func (h *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if externalID := r.URL.Query().Get("external_id"); externalID != "" {
		series, err := h.series.FindByExternalID(r.Context(), externalID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, series)
		return
	}
	series, err := h.series.Get(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *SeriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input repository.UpdateSeriesInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	series, err := h.series.Update(r.Context(), chi.URLParam(r, "seriesID"), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.resync(r, series)
	writeJSON(w, http.StatusOK, series)
}

func (h *SeriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")
	series, err := h.series.Get(r.Context(), seriesID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.series.Delete(r.Context(), seriesID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.sync.RemoveSeriesPointer(r.Context(), seriesID, series.GroupIDs); err != nil {
		h.logger.Warn("series pointer removal after delete failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SeriesHandler) AddIdea(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")
	var body struct {
		Text    string `json:"text"`
		AddedBy string `json:"added_by"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	idea, err := domain.NewIdeaListMember(seriesID, body.Text, body.AddedBy)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.series.AddIdea(r.Context(), idea); err != nil {
		writeError(w, h.logger, err)
		return
	}
	series, err := h.series.Get(r.Context(), seriesID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.resync(r, series)
	writeJSON(w, http.StatusCreated, idea)
}

func (h *SeriesHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.series.ListIdeas(r.Context(), chi.URLParam(r, "seriesID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *SeriesHandler) RemoveIdea(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")
	err := h.series.RemoveIdea(r.Context(), seriesID, chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	series, err := h.series.Get(r.Context(), seriesID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.resync(r, series)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SeriesHandler) Resync(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")
	series, err := h.series.Get(r.Context(), seriesID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.sync.SyncSeriesPointer(r.Context(), seriesID, series.GroupIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SeriesHandler) resync(r *http.Request, series *domain.EventSeries) {
	result, err := h.sync.SyncSeriesPointer(r.Context(), series.SeriesID, series.GroupIDs)
	if err != nil {
		h.logger.Warn("series pointer sync failed",
			zap.String("series_id", series.SeriesID), zap.Error(err))
		return
	}
	if len(result.Failed) > 0 {
		h.logger.Warn("series pointer sync partially failed",
			zap.String("series_id", series.SeriesID),
			zap.Strings("failed_groups", result.Failed))
	}
}

// OfferHandler serves reservation-offer endpoints.
type OfferHandler struct {
	offers *repository.OfferRepository
	logger *zap.Logger
}

// NewOfferHandler creates an offer handler.
func NewOfferHandler(offers *repository.OfferRepository, logger *zap.Logger) *OfferHandler {
	return &OfferHandler{offers: offers, logger: logger}
}

func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateOfferInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	offer, err := domain.NewReservationOffer(input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.offers.Create(r.Context(), offer); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	offer, err := h.offers.Get(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *OfferHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, h.logger, &body) {
		return
	}
	offer, err := h.offers.ClaimCapacity(r.Context(), chi.URLParam(r, "offerID"), body.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *OfferHandler) Complete(w http.ResponseWriter, r *http.Request) {
	offer, err := h.offers.Complete(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *OfferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	offer, err := h.offers.Cancel(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// UserHandler serves user and token endpoints.
type UserHandler struct {
	users  *repository.UserRepository
	logger *zap.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users *repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateUserInput
	if !decodeBody(w, r, h.logger, &input) {
		return
	}
	user, err := domain.NewUser(input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByCalendarToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) RevokeAllTokens(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteAllTokens(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
