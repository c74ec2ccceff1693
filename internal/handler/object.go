package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/middleware"
	"github.com/pkordes/culture-map/backend/internal/policy"
)

// objectRequest is the body of POST, PUT and PATCH /api/objects.
// Nil fields were not supplied. Tags are sent as ids; status and author are
// not part of the request and are ignored if present.
type objectRequest struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	Tags            *[]string `json:"tags"`
	WikipediaURL    *string   `json:"wikipedia_url"`
	OfficialWebsite *string   `json:"official_website"`
	GoogleMapsURL   *string   `json:"google_maps_url"`
}

type objectResponse struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Latitude        float64       `json:"latitude"`
	Longitude       float64       `json:"longitude"`
	Status          domain.Status `json:"status"`
	AuthorID        uuid.UUID     `json:"author_id"`
	Author          string        `json:"author"`
	Tags            []tagResponse `json:"tags"`
	WikipediaURL    *string       `json:"wikipedia_url"`
	OfficialWebsite *string       `json:"official_website"`
	GoogleMapsURL   *string       `json:"google_maps_url"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ArchivedAt      *time.Time    `json:"archived_at"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type objectPageResponse struct {
	Data       []objectResponse `json:"data"`
	Pagination pagination       `json:"pagination"`
}

type archiveResponse struct {
	ID         uuid.UUID     `json:"id"`
	Status     domain.Status `json:"status"`
	ArchivedAt time.Time     `json:"archived_at"`
	Message    string        `json:"message"`
}

// ListObjects handles GET /api/objects.
// Supports ?tags=<id>,<id>, ?search=, ?page= and ?limit= (defaults: page=1,
// limit=20, max=100). The result is limited to what the caller may see.
func (s *Server) ListObjects(w http.ResponseWriter, r *http.Request) {
	filter, page, err := bindListParams(r)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	result, err := s.catalog.List(r.Context(), middleware.CallerFrom(r.Context()), filter, page)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(result))
}

// MyObjects handles GET /api/objects/my: the caller's own non-archived
// submissions in any status.
func (s *Server) MyObjects(w http.ResponseWriter, r *http.Request) {
	page, verr := bindPage(r)
	if verr != nil {
		s.fail(w, r, verr, "cultural object")
		return
	}
	result, err := s.catalog.MyObjects(r.Context(), middleware.CallerFrom(r.Context()), page)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(result))
}

// GetObject handles GET /api/objects/{id}.
func (s *Server) GetObject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	obj, err := s.catalog.Get(r.Context(), middleware.CallerFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusOK, objectToResponse(obj))
}

// CreateObject handles POST /api/objects.
func (s *Server) CreateObject(w http.ResponseWriter, r *http.Request) {
	// Reject anonymous callers before reading the body, so they see 401
	// rather than a validation error.
	caller := middleware.CallerFrom(r.Context())
	if caller.IsAnonymous() {
		s.fail(w, r, domain.ErrUnauthenticated, "cultural object")
		return
	}
	in, err := readObjectInput(r, policy.ModeCreate)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	created, err := s.catalog.Create(r.Context(), caller, in)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusCreated, objectToResponse(created))
}

// ReplaceObject handles PUT /api/objects/{id}.
func (s *Server) ReplaceObject(w http.ResponseWriter, r *http.Request) {
	s.updateObject(w, r, false)
}

// PatchObject handles PATCH /api/objects/{id}.
func (s *Server) PatchObject(w http.ResponseWriter, r *http.Request) {
	s.updateObject(w, r, true)
}

func (s *Server) updateObject(w http.ResponseWriter, r *http.Request, partial bool) {
	caller := middleware.CallerFrom(r.Context())
	if caller.IsAnonymous() {
		s.fail(w, r, domain.ErrUnauthenticated, "cultural object")
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	mode := policy.ModeReplace
	if partial {
		mode = policy.ModePatch
	}
	in, err := readObjectInput(r, mode)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	updated, err := s.catalog.Update(r.Context(), caller, id, in, partial)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusOK, objectToResponse(updated))
}

// ArchiveObject handles DELETE /api/objects/{id}. Deletion is a soft
// archive; a second DELETE of the same record answers 404.
func (s *Server) ArchiveObject(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	if caller.IsAnonymous() {
		s.fail(w, r, domain.ErrUnauthenticated, "cultural object")
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	conf, err := s.catalog.Archive(r.Context(), caller, id)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse{
		ID:         conf.ID,
		Status:     conf.Status,
		ArchivedAt: conf.ArchivedAt,
		Message:    "Object archived",
	})
}

// --- mapping helpers --------------------------------------------------------

// readObjectInput decodes the request body into a domain.ObjectInput.
// Malformed tag ids and mistyped fields do not stop the other checks: the
// payload is still run through policy.ValidateObject and every violation is
// reported together.
func readObjectInput(r *http.Request, mode policy.Mode) (domain.ObjectInput, error) {
	var body objectRequest
	verr := domain.NewValidationError()
	typeErrs, err := decodeJSONFields(r, &body)
	if err != nil {
		return domain.ObjectInput{}, err
	}
	verr.Merge(typeErrs)

	in := domain.ObjectInput{
		Title:           body.Title,
		Description:     body.Description,
		Latitude:        body.Latitude,
		Longitude:       body.Longitude,
		WikipediaURL:    body.WikipediaURL,
		OfficialWebsite: body.OfficialWebsite,
		GoogleMapsURL:   body.GoogleMapsURL,
	}
	if body.Tags != nil {
		ids := make([]uuid.UUID, 0, len(*body.Tags))
		for _, raw := range *body.Tags {
			id, err := uuid.Parse(raw)
			if err != nil {
				verr.Add("tags", "\""+raw+"\" is not a valid tag id")
				// Stand-in id so the tag count still reflects the payload.
				id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw))
			}
			ids = append(ids, id)
		}
		in.TagIDs = &ids
	}
	if len(verr.Fields) == 0 {
		return in, nil
	}

	if rules := policy.ValidateObject(in, mode); rules != nil {
		for field, reasons := range rules.Fields {
			// A mistyped field decodes as absent; "is required" would be noise.
			if typeErrs.Has(field) {
				continue
			}
			for _, reason := range reasons {
				verr.Add(field, reason)
			}
		}
	}
	return domain.ObjectInput{}, verr
}

// objectToResponse converts a domain.CulturalObject into its JSON shape.
func objectToResponse(o domain.CulturalObject) objectResponse {
	tags := make([]tagResponse, len(o.Tags))
	for i, t := range o.Tags {
		tags[i] = tagToResponse(t)
	}
	return objectResponse{
		ID:              o.ID,
		Title:           o.Title,
		Description:     o.Description,
		Latitude:        o.Latitude,
		Longitude:       o.Longitude,
		Status:          o.Status,
		AuthorID:        o.AuthorID,
		Author:          o.AuthorUsername,
		Tags:            tags,
		WikipediaURL:    o.WikipediaURL,
		OfficialWebsite: o.OfficialWebsite,
		GoogleMapsURL:   o.GoogleMapsURL,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		ArchivedAt:      o.ArchivedAt,
	}
}

func pageToResponse(p domain.Page[domain.CulturalObject]) objectPageResponse {
	data := make([]objectResponse, len(p.Items))
	for i, o := range p.Items {
		data[i] = objectToResponse(o)
	}
	return objectPageResponse{
		Data: data,
		Pagination: pagination{
			Page:  p.Params.Page,
			Limit: p.Params.Limit,
			Total: p.Total,
		},
	}
}
