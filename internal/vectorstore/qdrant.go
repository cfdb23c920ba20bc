package vectorstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/experience-matcher/internal/types"
)

// QdrantConfig configures the Qdrant gRPC store.
type QdrantConfig struct {
	Host           string
	Port           int
	UseTLS         bool
	CollectionName string
	// VectorSize must match the embedder's dimension.
	VectorSize int
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryBackoff is the initial backoff, doubled per retry.
	RetryBackoff time.Duration
}

// ApplyDefaults fills in zero-valued fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.CollectionName == "" {
		c.CollectionName = "experiences"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
}

// Validate checks the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &Error{Op: "config", Message: "invalid port"}
	}
	if c.VectorSize <= 0 {
		return &Error{Op: "config", Message: "vector size must be positive"}
	}
	return nil
}

// QdrantStore implements Store against a Qdrant instance over gRPC.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger
}

// Connect opens the gRPC connection, verifies it with a health check, and
// ensures the experience collection exists. The returned store must be
// closed by the caller on every exit path.
func Connect(ctx context.Context, config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, &Error{Op: "connect", Message: "creating Qdrant client", Cause: err}
	}

	store := &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		_ = client.Close()
		return nil, &Error{Op: "connect", Message: "health check failed", Cause: err}
	}

	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Debug("connected to Qdrant",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.CollectionName))
	return store, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.CollectionName)
	if err != nil {
		return &Error{Op: "ensure_collection", Message: "checking collection", Cause: err}
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.VectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &Error{Op: "ensure_collection", Message: "creating collection", Cause: err}
	}
	return nil
}

// NearText embeds the query and runs a similarity search.
func (s *QdrantStore) NearText(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &Error{Op: "near_text", Message: "query is empty"}
	}
	if limit <= 0 {
		limit = 10
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &Error{Op: "near_text", Message: "embedding query", Cause: err}
	}

	req := &qdrant.QueryPoints{
		CollectionName: s.config.CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if opts != nil {
		if opts.Company != "" {
			req.Filter = &qdrant.Filter{
				Must: []*qdrant.Condition{{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key: "company",
							Match: &qdrant.Match{
								MatchValue: &qdrant.Match_Keyword{Keyword: opts.Company},
							},
						},
					},
				}},
			}
		}
		if opts.ScoreThreshold > 0 {
			req.ScoreThreshold = qdrant.PtrOf(float32(opts.ScoreThreshold))
		}
	}

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "near_text", func() error {
		var qerr error
		points, qerr = s.client.Query(ctx, req)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(points))
	for _, point := range points {
		exp := experienceFromPayload(point.Id.GetUuid(), point.Payload)
		results = append(results, Result{
			Experience: exp,
			Score:      float64(point.Score),
		})
	}
	return results, nil
}

// AddExperience embeds the experience text and upserts it.
func (s *QdrantStore) AddExperience(ctx context.Context, exp *types.Experience) (string, error) {
	if strings.TrimSpace(exp.Text) == "" {
		return "", &Error{Op: "add_experience", Message: "experience text is empty"}
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, []string{exp.Text})
	if err != nil {
		return "", &Error{Op: "add_experience", Message: "embedding experience", Cause: err}
	}

	id := exp.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := exp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Vectors: qdrant.NewVectors(vectors[0]...),
		Payload: payloadFromExperience(exp, createdAt),
	}

	err = s.retryOperation(ctx, "add_experience", func() error {
		_, uerr := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.CollectionName,
			Points:         []*qdrant.PointStruct{point},
		})
		return uerr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetExperience fetches one experience by id. Returns nil when not found.
func (s *QdrantStore) GetExperience(ctx context.Context, id string) (*types.Experience, error) {
	var points []*qdrant.RetrievedPoint
	err := s.retryOperation(ctx, "get_experience", func() error {
		var gerr error
		points, gerr = s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.config.CollectionName,
			Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return gerr
	})
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	exp := experienceFromPayload(points[0].Id.GetUuid(), points[0].Payload)
	return &exp, nil
}

// ListExperiences scrolls up to limit stored experiences.
func (s *QdrantStore) ListExperiences(ctx context.Context, limit int) ([]types.Experience, error) {
	if limit <= 0 {
		limit = 100
	}

	var points []*qdrant.RetrievedPoint
	err := s.retryOperation(ctx, "list_experiences", func() error {
		var serr error
		points, serr = s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.config.CollectionName,
			Limit:          qdrant.PtrOf(uint32(limit)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return serr
	})
	if err != nil {
		return nil, err
	}

	experiences := make([]types.Experience, 0, len(points))
	for _, point := range points {
		experiences = append(experiences, experienceFromPayload(point.Id.GetUuid(), point.Payload))
	}
	return experiences, nil
}

// DeleteExperience removes one experience by id.
func (s *QdrantStore) DeleteExperience(ctx context.Context, id string) error {
	return s.retryOperation(ctx, "delete_experience", func() error {
		_, derr := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.CollectionName,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{
						Ids: []*qdrant.PointId{qdrant.NewIDUUID(id)},
					},
				},
			},
		})
		return derr
	})
}

// retryOperation retries an operation with exponential backoff on transient
// gRPC errors.
func (s *QdrantStore) retryOperation(ctx context.Context, op string, operation func() error) error {
	backoff := s.config.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return &Error{Op: op, Message: "permanent failure", Cause: lastErr}
		}
		if attempt == s.config.MaxRetries {
			break
		}

		s.logger.Debug("retrying backend operation",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return &Error{Op: op, Message: "canceled", Cause: ctx.Err()}
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return &Error{Op: op, Message: "retries exhausted", Cause: lastErr}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
			return true
		}
	}
	return false
}

func payloadFromExperience(exp *types.Experience, createdAt time.Time) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"company":    stringValue(exp.Company),
		"text":       stringValue(exp.Text),
		"role":       stringValue(exp.Role),
		"duration":   stringValue(exp.Duration),
		"skills":     stringValue(strings.Join(exp.Skills, ",")),
		"categories": stringValue(strings.Join(exp.Categories, ",")),
		"created_at": stringValue(createdAt.Format(time.RFC3339)),
	}
	return payload
}

func experienceFromPayload(id string, payload map[string]*qdrant.Value) types.Experience {
	exp := types.Experience{
		ID:       id,
		Company:  payloadString(payload, "company"),
		Text:     payloadString(payload, "text"),
		Role:     payloadString(payload, "role"),
		Duration: payloadString(payload, "duration"),
	}
	if skills := payloadString(payload, "skills"); skills != "" {
		exp.Skills = strings.Split(skills, ",")
	}
	if categories := payloadString(payload, "categories"); categories != "" {
		exp.Categories = strings.Split(categories, ",")
	}
	if raw := payloadString(payload, "created_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			exp.CreatedAt = ts
		}
	}
	return exp
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if value, ok := payload[key]; ok {
		if sv, ok := value.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}
