package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wenqi/jobtailor/internal/storage"
)

// ArtifactService writes generated content to object storage. Keys are
// deterministic per (user, posting URL), so regenerating for the same job
// replaces the previous artifact instead of accumulating copies.
type ArtifactService struct {
	store storage.ObjectStorage
}

// NewArtifactService creates a new artifact service.
func NewArtifactService(store storage.ObjectStorage) *ArtifactService {
	return &ArtifactService{store: store}
}

// Put uploads one artifact and returns its storage key.
func (s *ArtifactService) Put(ctx context.Context, userID, targetURL, kind string, content []byte) (string, error) {
	key := ArtifactKey(userID, targetURL, kind)
	if err := s.store.Upload(ctx, key, content, contentTypeFor(kind)); err != nil {
		return "", fmt.Errorf("failed to store artifact %s: %w", kind, err)
	}
	return key, nil
}

// URL returns the public URL for an artifact key.
func (s *ArtifactService) URL(key string) string {
	return s.store.GetURL(key)
}

// ArtifactKey builds the object key for one artifact. The posting URL is
// folded into a stable UUID so keys stay opaque and filesystem-safe.
func ArtifactKey(userID, targetURL, kind string) string {
	urlID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(targetURL))
	return fmt.Sprintf("users/%s/%s/%s", userID, urlID, kind)
}

func contentTypeFor(kind string) string {
	switch {
	case strings.HasSuffix(kind, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(kind, ".json"):
		return "application/json"
	case strings.HasSuffix(kind, ".md"):
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
