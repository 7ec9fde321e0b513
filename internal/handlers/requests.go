package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/validation"
)

// RequestHandler serves /api/requests.
type RequestHandler struct {
	Deps
}

func NewRequestHandler(d Deps) *RequestHandler { return &RequestHandler{Deps: d} }

// requestInput is the writable part of a request. Nil fields are left unchanged.
type requestInput struct {
	ClientID         *string               `json:"client_id"`
	CarID            *string               `json:"car_id"`
	InspectionTypeID *string               `json:"inspection_type_id"`
	BrokerID         *string               `json:"broker_id"`
	BrokerCommission *float64              `json:"broker_commission"`
	Price            *float64              `json:"price"`
	PaymentType      *models.PaymentType   `json:"payment_type"`
	Status           *models.RequestStatus `json:"status"`
	StampURL         *string               `json:"stamp_url"`
	Car              *carInput             `json:"car"`
	Version          int                   `json:"version"`
}

// apply copies the input onto req. Price and commission default from the
// inspection type and broker when they are not given.
func (in requestInput) apply(s *state.Store, req *models.InspectionRequest) validation.Violations {
	v := validation.Violations{}
	if in.ClientID != nil {
		req.ClientID = *in.ClientID
	}
	if in.CarID != nil {
		req.CarID = *in.CarID
	}
	if in.InspectionTypeID != nil {
		req.InspectionTypeID = *in.InspectionTypeID
		if in.Price == nil {
			if t, ok := s.InspectionType(req.InspectionTypeID); ok {
				req.Price = t.Price
			}
		}
	}
	if in.BrokerID != nil {
		if *in.BrokerID == "" {
			req.BrokerID, req.BrokerCommission = nil, 0
		} else {
			id := *in.BrokerID
			req.BrokerID = &id
			if b, ok := s.Broker(id); !ok {
				v["broker_id"] = "invalid_choice"
			} else if in.BrokerCommission == nil {
				req.BrokerCommission = b.DefaultCommission
			}
		}
	}
	if in.BrokerCommission != nil {
		req.BrokerCommission = *in.BrokerCommission
	}
	if in.Price != nil {
		req.Price = *in.Price
	}
	if in.PaymentType != nil {
		req.PaymentType = *in.PaymentType
	}
	if in.Status != nil {
		req.Status = *in.Status
	}
	if in.StampURL != nil {
		req.StampURL = *in.StampURL
	}

	if _, ok := s.ClientByID(req.ClientID); req.ClientID != "" && !ok {
		v["client_id"] = "invalid_choice"
	}
	if _, ok := s.Car(req.CarID); req.CarID != "" && !ok {
		v["car_id"] = "invalid_choice"
	}
	if _, ok := s.InspectionType(req.InspectionTypeID); req.InspectionTypeID != "" && !ok {
		v["inspection_type_id"] = "invalid_choice"
	}
	return v.Merge(validation.Struct(req))
}

func requestMatches(s *state.Store, req models.InspectionRequest, q string) bool {
	if strconv.Itoa(req.RequestNumber) == strings.TrimPrefix(q, "#") {
		return true
	}
	if c, ok := s.ClientByID(req.ClientID); ok && (contains(c.Name, q) || contains(c.Phone, q)) {
		return true
	}
	if car, ok := s.Car(req.CarID); ok && contains(car.PlateNumber, q) {
		return true
	}
	return false
}

// List filters by ?status=, ?client_id=, ?broker_id= and ?q=, newest first.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := []models.InspectionRequest{}
	for _, req := range h.State.Requests() {
		if st := q.Get("status"); st != "" && string(req.Status) != st {
			continue
		}
		if id := q.Get("client_id"); id != "" && req.ClientID != id {
			continue
		}
		if id := q.Get("broker_id"); id != "" && (req.BrokerID == nil || *req.BrokerID != id) {
			continue
		}
		if s := q.Get("q"); s != "" && !requestMatches(h.State, req, s) {
			continue
		}
		out = append(out, req)
	}
	slices.SortFunc(out, func(a, b models.InspectionRequest) int { return b.RequestNumber - a.RequestNumber })
	if !h.Gate.Can(r.Context(), gate.ViewFinancials) {
		for i := range out {
			out[i].BrokerCommission = 0
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

func (h *RequestHandler) load(w http.ResponseWriter, r *http.Request) (models.InspectionRequest, bool) {
	req, ok := h.State.Request(r.PathValue("id"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
	}
	return req, ok
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	if req, ok := h.load(w, r); ok {
		httpx.JSON(w, http.StatusOK, req)
	}
}

// Create numbers the request and, when a car is described inline, adds it
// (and its make and model) first.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in requestInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	ctx := r.Context()
	if in.Car != nil && (in.CarID == nil || *in.CarID == "") {
		if in.Car.ClientID == "" && in.ClientID != nil {
			in.Car.ClientID = *in.ClientID
		}
		car, v, err := resolveCar(ctx, h.State, *in.Car, models.Car{})
		if err != nil {
			h.fail(w, r, err, "save_failed")
			return
		}
		if !v.Empty() {
			h.invalid(w, r, prefixed("car.", v))
			return
		}
		if err := h.State.AddCar(ctx, &car); err != nil {
			h.fail(w, r, err, "save_failed")
			return
		}
		in.CarID = &car.ID
	}
	var req models.InspectionRequest
	if v := in.apply(h.State, &req); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.State.CreateRequest(ctx, &req, h.actor(r)); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusCreated, "created", req)
}

// Update saves the request when version still matches the stored one. A
// zero version means the cached one. An inline car is written first.
func (h *RequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.State.RequestForEdit(r.PathValue("id"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	var in requestInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if in.Version != 0 {
		req.Version = in.Version
	}
	ctx := r.Context()
	var car *models.Car
	if in.Car != nil {
		base, _ := h.State.Car(req.CarID)
		if in.Car.ID != "" {
			base, _ = h.State.Car(in.Car.ID)
		}
		c, v, err := resolveCar(ctx, h.State, *in.Car, base)
		if err != nil {
			h.fail(w, r, err, "save_failed")
			return
		}
		if !v.Empty() {
			h.invalid(w, r, prefixed("car.", v))
			return
		}
		if c.ID == "" {
			if err := h.State.AddCar(ctx, &c); err != nil {
				h.fail(w, r, err, "save_failed")
				return
			}
			in.CarID = &c.ID
		} else {
			car = &c
		}
	}
	if v := in.apply(h.State, &req); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	req.ActivityLog = append(req.ActivityLog, h.State.Activity(h.actor(r), state.ActionUpdated, ""))
	var err error
	if car != nil {
		err = h.State.UpdateRequestWithCar(ctx, &req, car)
	} else {
		err = h.State.UpdateRequest(ctx, &req)
	}
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", req)
}

func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.confirmed(w, r, DeleteAction("request", req.ID)) {
		return
	}
	if err := h.State.DeleteRequest(r.Context(), req.ID); err != nil {
		h.fail(w, r, err, "delete_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "deleted", map[string]string{"id": req.ID})
}

type statusInput struct {
	Status models.RequestStatus `json:"status"`
}

func (h *RequestHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if !in.Status.Valid() {
		h.invalid(w, r, validation.Violations{"status": "invalid_choice"})
		return
	}
	req, err := h.State.SetStatus(r.Context(), r.PathValue("id"), in.Status, h.actor(r))
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "status_"+string(in.Status), req)
}

type findingsInput struct {
	Findings []models.Finding `json:"findings"`
}

// SetFindings replaces the findings. Each must name a known finding and,
// when the finding lists options, one of them (or be blank).
func (h *RequestHandler) SetFindings(w http.ResponseWriter, r *http.Request) {
	var in findingsInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	v := validation.Violations{}
	for i, f := range in.Findings {
		pf, ok := h.State.Finding(f.FindingID)
		key := "findings." + strconv.Itoa(i)
		switch {
		case !ok:
			v[key] = "invalid_choice"
		case f.CategoryID != "" && f.CategoryID != pf.CategoryID:
			v[key] = "invalid_choice"
		case strings.TrimSpace(f.Value) != "" && len(pf.Options) > 0 && !slices.Contains([]string(pf.Options), f.Value):
			v[key] = "invalid_choice"
		default:
			in.Findings[i].CategoryID = pf.CategoryID
		}
	}
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if in.Findings == nil {
		in.Findings = []models.Finding{}
	}
	req, err := h.State.SetFindings(r.Context(), r.PathValue("id"), in.Findings, h.actor(r))
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "saved", req)
}

type noteInput struct {
	CategoryID string `json:"category_id"`
	Text       string `json:"text"`
	ImageURL   string `json:"image_url"`
}

// AddNote accepts JSON or a multipart form whose "image" file is stored in
// the images bucket. An empty category_id adds a general note.
func (h *RequestHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.State.Request(id); !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	var in noteInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
		up, err := h.upload(r, "image", storage.BucketImages)
		switch {
		case errors.Is(err, errNoFile):
		case err != nil:
			h.fail(w, r, err, "upload_failed")
			return
		default:
			in.ImageURL = up.URL
		}
		in.CategoryID = r.FormValue("category_id")
		in.Text = r.FormValue("text")
	} else if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" && in.ImageURL == "" {
		h.invalid(w, r, validation.Violations{"text": "required"})
		return
	}
	if _, ok := h.State.Category(in.CategoryID); in.CategoryID != "" && !ok {
		h.invalid(w, r, validation.Violations{"category_id": "invalid_choice"})
		return
	}
	req, err := h.State.AddNote(r.Context(), id, in.CategoryID, models.Note{Text: in.Text, ImageURL: in.ImageURL}, h.actor(r))
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusCreated, "saved", req)
}

func (h *RequestHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	req, err := h.State.DeleteNote(r.Context(), r.PathValue("id"), r.PathValue("noteID"), h.actor(r))
	if err != nil {
		h.fail(w, r, err, "delete_failed")
		return
	}
	h.ok(w, r, http.StatusOK, "deleted", req)
}

// AddAttachment stores the multipart "file" and links it to the request.
func (h *RequestHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.State.Request(id); !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	up, err := h.upload(r, "file", storage.BucketImages)
	if errors.Is(err, errNoFile) {
		h.invalid(w, r, validation.Violations{"file": "required"})
		return
	}
	if err != nil {
		h.fail(w, r, err, "upload_failed")
		return
	}
	req, err := h.State.AddAttachment(r.Context(), id, models.Attachment{Name: up.Name, URL: up.URL, Type: up.ContentType}, h.actor(r))
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusCreated, "saved", req)
}

// Activity returns the activity log, newest first.
func (h *RequestHandler) Activity(w http.ResponseWriter, r *http.Request) {
	req, ok := h.load(w, r)
	if !ok {
		return
	}
	entries := slices.Clone([]models.ActivityEntry(req.ActivityLog))
	slices.Reverse(entries)
	if entries == nil {
		entries = []models.ActivityEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "total": len(entries)})
}

// NextNumber previews the number the next request will get.
func (h *RequestHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]int{"request_number": h.State.NextRequestNumber()})
}

func prefixed(prefix string, v validation.Violations) validation.Violations {
	out := make(validation.Violations, len(v))
	for k, code := range v {
		out[prefix+k] = code
	}
	return out
}
