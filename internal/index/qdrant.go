package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/galaxyops/holocron/internal/models"
)

const (
	qdrantDialTimeout  = 10 * time.Second
	qdrantReadTimeout  = 10 * time.Second
	qdrantWriteTimeout = 30 * time.Second
)

const textHashField = "text_hash"

// QdrantVectorStore implements VectorStore using Qdrant's gRPC API.
// Character IDs are used directly as point UUIDs, so an upsert replaces the
// previous point in a single atomic write.
type QdrantVectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collName    string
	dimension   uint64
	logger      *slog.Logger
}

// NewQdrantVectorStore connects to Qdrant and verifies the connection with
// a lightweight RPC.
func NewQdrantVectorStore(host string, port int, collection string, dimension uint64, useTLS bool, logger *slog.Logger) (*QdrantVectorStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	opts := []grpc.DialOption{}
	if !useTLS {
		logger.Warn("Qdrant connection using insecure credentials (no TLS)")
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to Qdrant at %s: %w", addr, err)
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), qdrantDialTimeout)
	defer dialCancel()
	if _, err := pb.NewCollectionsClient(conn).List(dialCtx, &pb.ListCollectionsRequest{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("verifying Qdrant connection at %s: %w", addr, err)
	}

	logger.Info("connected to Qdrant", "addr", addr, "collection", collection)

	return &QdrantVectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collName:    collection,
		dimension:   dimension,
		logger:      logger,
	}, nil
}

// EnsureReady creates the collection with cosine distance if it does not exist.
func (q *QdrantVectorStore) EnsureReady(ctx context.Context) error {
	rctx, rcancel := context.WithTimeout(ctx, qdrantReadTimeout)
	defer rcancel()
	resp, err := q.collections.List(rctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == q.collName {
			q.logger.Debug("collection already exists", "name", q.collName)
			return nil
		}
	}

	wctx, wcancel := context.WithTimeout(ctx, qdrantWriteTimeout)
	defer wcancel()
	_, err = q.collections.Create(wctx, &pb.CreateCollection{
		CollectionName: q.collName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     q.dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collName, err)
	}

	q.logger.Info("created collection", "name", q.collName, "dimension", q.dimension)
	return nil
}

// Get retrieves the entry for a character.
func (q *QdrantVectorStore) Get(ctx context.Context, characterID string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, qdrantReadTimeout)
	defer cancel()

	resp, err := q.points.Get(ctx, &pb.GetPoints{
		CollectionName: q.collName,
		Ids:            []*pb.PointId{pointID(characterID)},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("getting point %s: %w", characterID, err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, fmt.Errorf("character %s: %w", characterID, ErrEntryNotFound)
	}

	point := resp.GetResult()[0]
	entry := Entry{
		CharacterID: characterID,
		Vector:      point.GetVectors().GetVector().GetData(),
		TextHash:    point.GetPayload()[textHashField].GetStringValue(),
	}
	return &entry, nil
}

// Upsert writes the entry as a single point; Qdrant replaces the previous
// point atomically.
func (q *QdrantVectorStore) Upsert(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, qdrantWriteTimeout)
	defer cancel()

	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collName,
		Points: []*pb.PointStruct{
			{
				Id: pointID(entry.CharacterID),
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: entry.Vector},
					},
				},
				Payload: map[string]*pb.Value{
					textHashField: {Kind: &pb.Value_StringValue{StringValue: entry.TextHash}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upserting point %s: %w", entry.CharacterID, err)
	}

	q.logger.Debug("upserted index entry", "character", entry.CharacterID)
	return nil
}

// Delete removes the point for a character.
func (q *QdrantVectorStore) Delete(ctx context.Context, characterID string) error {
	ctx, cancel := context.WithTimeout(ctx, qdrantWriteTimeout)
	defer cancel()

	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{pointID(characterID)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting point %s: %w", characterID, err)
	}
	return nil
}

// Search ranks points by cosine similarity to the query vector.
func (q *QdrantVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, qdrantReadTimeout)
	defer cancel()

	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collName,
		Vector:         vector,
		Limit:          uint64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	results := make([]models.SearchResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		results = append(results, models.SearchResult{
			CharacterID: point.GetId().GetUuid(),
			Score:       float64(point.GetScore()),
		})
	}
	return results, nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantVectorStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, qdrantReadTimeout)
	defer cancel()

	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{
		CollectionName: q.collName,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the gRPC connection.
func (q *QdrantVectorStore) Close() error {
	return q.conn.Close()
}

func pointID(characterID string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: characterID}}
}

var _ VectorStore = (*QdrantVectorStore)(nil)
