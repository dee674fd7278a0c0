package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/devcontext-backend/internal/pkg/strutil"
	"github.com/yungbote/devcontext-backend/internal/platform/ctxutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

const (
	payloadNamespaceKey = "_dc_namespace"
	payloadPointKey     = "_dc_point_id"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("7d2a9c4e-1b3f-4f5a-8e6d-0c9b8a7f6e51")

// Point is one vector with its payload. ID is caller-chosen; it is mapped to
// a deterministic qdrant UUID per namespace.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit. Distance is the metric distance derived from
// the raw qdrant score; Similarity = max(0, 1 - Distance/2).
type ScoredPoint struct {
	ID         string
	Score      float64
	Distance   float64
	Similarity float64
	Payload    map[string]any
}

type VectorStore struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	nsPrefix string
	distance string
	http     *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewVectorStore checks readiness and creates the collection when it does
// not exist yet.
func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config) (*VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}

	s := &VectorStore{
		log:      log.With("service", "QdrantVectorStore"),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		nsPrefix: strings.TrimSpace(cfg.NamespacePrefix),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	if err := s.verifyReady(ctx); err != nil {
		return nil, err
	}

	s.log.Info(
		"Qdrant vector store ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"namespace_prefix", s.nsPrefix,
		"vector_dim", cfg.VectorDim,
		"distance", s.distance,
	)
	return s, nil
}

func (s *VectorStore) Upsert(ctx context.Context, namespace string, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	ns := s.qualifyNamespace(namespace)
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", id), nil)
		}
		if s.cfg.VectorDim > 0 && len(p.Vector) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(p.Vector)), nil)
		}
		payload := clonePayload(p.Payload)
		payload[payloadNamespaceKey] = ns
		payload[payloadPointKey] = id
		body = append(body, map[string]any{
			"id":      s.pointID(ns, id),
			"vector":  p.Vector,
			"payload": payload,
		})
	}

	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

// Search returns up to topK hits ordered by similarity, highest first.
func (s *VectorStore) Search(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]ScoredPoint, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)), nil)
	}
	if topK <= 0 {
		topK = 5
	}

	ns := s.qualifyNamespace(namespace)
	qf := translatedFilter{Must: []any{matchCondition(payloadNamespaceKey, ns)}}
	if len(filter) > 0 {
		extra, err := translateFilter(filter)
		if err != nil {
			s.log.Warn("qdrant search filter rejected", "namespace", ns, "error", err)
			return nil, err
		}
		qf.Must = append(qf.Must, extra.Must...)
		qf.Should = append(qf.Should, extra.Should...)
		qf.MustNot = append(qf.MustNot, extra.MustNot...)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       qf.asMap(),
	}
	var raw []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	out := make([]ScoredPoint, 0, len(raw))
	for _, item := range raw {
		id := extractPointID(item)
		if id == "" {
			continue
		}
		d := DistanceFromScore(s.distance, item.Score)
		payload := clonePayload(item.Payload)
		delete(payload, payloadNamespaceKey)
		delete(payload, payloadPointKey)
		out = append(out, ScoredPoint{
			ID:         id,
			Score:      item.Score,
			Distance:   d,
			Similarity: Similarity(d),
			Payload:    payload,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity == out[j].Similarity {
			return out[i].ID < out[j].ID
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

// DeleteWhere removes every point in namespace matching filter. An empty
// filter is rejected so a namespace is never cleared by accident.
func (s *VectorStore) DeleteWhere(ctx context.Context, namespace string, filter map[string]any) error {
	const op = "delete"
	if len(filter) == 0 {
		return opErr(op, OperationErrorValidation, "delete filter is required", nil)
	}
	extra, err := translateFilter(filter)
	if err != nil {
		return err
	}
	if extra.empty() {
		return opErr(op, OperationErrorValidation, "delete filter matched no fields", nil)
	}
	ns := s.qualifyNamespace(namespace)
	qf := translatedFilter{
		Must:    append([]any{matchCondition(payloadNamespaceKey, ns)}, extra.Must...),
		Should:  extra.Should,
		MustNot: extra.MustNot,
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": qf.asMap()}, nil)
}

// DistanceFromScore maps a raw qdrant score to a distance. Cosine and dot
// scores are similarities, so distance = 1 - score (range [0,2] for unit
// vectors). Euclid and Manhattan scores already are distances.
func DistanceFromScore(metric string, score float64) float64 {
	switch strings.ToLower(strings.TrimSpace(metric)) {
	case "euclid", "manhattan":
		if score < 0 {
			return -score
		}
		return score
	default:
		return 1 - score
	}
}

func Similarity(distance float64) float64 {
	sim := 1 - distance/2
	if sim < 0 {
		return 0
	}
	return sim
}

func (s *VectorStore) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err = s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result)
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound {
		return s.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf("qdrant collection %q vector size mismatch: expected=%d actual=%d",
				s.cfg.Collection, s.cfg.VectorDim, size),
		}
	}
	s.distance = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	return nil
}

func (s *VectorStore) createCollection(ctx context.Context) error {
	distance := s.cfg.Distance
	if distance == "" {
		distance = DefaultDistance
	}
	req := map[string]any{
		"vectors": map[string]any{"size": s.cfg.VectorDim, "distance": distance},
	}
	if err := s.doJSON(ctx, "create_collection", http.MethodPut, s.collectionPath(""), req, nil); err != nil {
		return err
	}
	s.distance = distance
	s.log.Info("qdrant collection created", "collection", s.cfg.Collection, "distance", distance)
	return nil
}

func (s *VectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*maxErrorBodyBytes))
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := parseEnvelopeStatus(envelope.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.EqualFold(asString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", asString)
	}
	var asObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && strings.TrimSpace(asObject.Error) != "" {
		return strings.TrimSpace(asObject.Error)
	}
	return "qdrant status=" + status
}

func truncateBody(raw []byte) string {
	return strutil.Ellipsize(string(raw), maxErrorBodyBytes)
}

func clonePayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *VectorStore) qualifyNamespace(namespace string) string {
	ns := strings.TrimSpace(namespace)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}

func (s *VectorStore) pointID(ns, id string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(ns+"|"+id)).String()
}

func (s *VectorStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func extractPointID(item qdrantSearchResultItem) string {
	if id, ok := item.Payload[payloadPointKey].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	if len(item.ID) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(item.ID, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asNumber int64
	if err := json.Unmarshal(item.ID, &asNumber); err == nil {
		return fmt.Sprintf("%d", asNumber)
	}
	return ""
}
