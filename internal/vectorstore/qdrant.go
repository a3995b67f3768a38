package vectorstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantConfig holds connection settings for a Qdrant instance.
type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Point is one vector with its string payload, addressed by UUID.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// SearchResult holds a single vector search hit.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Client wraps gRPC connections to Qdrant's collections and points services.
type Client struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewClient dials the Qdrant gRPC endpoint and returns a ready Client.
func NewClient(cfg QdrantConfig) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	return &Client{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// EnsureCollection creates the named collection (cosine distance) if it does
// not already exist.
func (c *Client) EnsureCollection(ctx context.Context, name string, dimension uint64) error {
	if _, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name}); err == nil {
		return nil
	}
	_, err := c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// Upsert inserts or updates a single point.
func (c *Client) Upsert(ctx context.Context, collection string, id string, vector []float32, payload map[string]string) error {
	return c.UpsertBatch(ctx, collection, []Point{{ID: id, Vector: vector, Payload: payload}})
}

// UpsertBatch inserts or updates points in one request.
func (c *Client) UpsertBatch(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
			Payload: toPayload(p.Payload),
		})
	}
	if _, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search performs a nearest-neighbor search restricted to points whose
// payload matches every key/value pair in filter.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK uint64, filter map[string]string) ([]*SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          topK,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if cond := keywordFilter(filter); cond != nil {
		req.Filter = cond
	}

	resp, err := c.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	results := make([]*SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, &SearchResult{
			ID:      r.Id.GetUuid(),
			Score:   r.Score,
			Payload: fromPayload(r.Payload),
		})
	}
	return results, nil
}

// Delete removes points by ID.
func (c *Client) Delete(ctx context.Context, collection string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*pb.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}})
	}
	if _, err := c.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pointIDs},
			},
		},
	}); err != nil {
		return fmt.Errorf("delete %d points from %s: %w", len(ids), collection, err)
	}
	return nil
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func keywordFilter(filter map[string]string) *pb.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*pb.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   k,
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: v}},
				},
			},
		})
	}
	return &pb.Filter{Must: must}
}

func toPayload(m map[string]string) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(m))
	for k, v := range m {
		out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return out
}

func fromPayload(m map[string]*pb.Value) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if sv, ok := v.Kind.(*pb.Value_StringValue); ok {
			out[k] = sv.StringValue
		}
	}
	return out
}
