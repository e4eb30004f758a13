package playlists

import (
	"strings"

	"github.com/samber/lo"

	"spotifly/internal/apperr"
	"spotifly/internal/models"
)

// normalizeSongIDs trims ids and drops repeats, keeping first occurrences.
func normalizeSongIDs(ids []string) ([]string, error) {
	trimmed := make([]string, 0, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apperr.InvalidInput("songIds[%d] must be a non-empty string", i)
		}
		trimmed = append(trimmed, id)
	}
	return lo.Uniq(trimmed), nil
}

// firstMissing reports the first requested id that did not resolve to a song.
func firstMissing(requested []string, found []models.SongSummary) (string, bool) {
	known := lo.SliceToMap(found, func(s models.SongSummary) (string, struct{}) { return s.ID, struct{}{} })
	return lo.Find(requested, func(id string) bool {
		_, ok := known[id]
		return !ok
	})
}

// mergeSongIDs keeps the existing order and appends incoming ids not already present.
func mergeSongIDs(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	return lo.Uniq(merged)
}

func removeSongIDs(current, remove []string) []string {
	filtered := lo.Without(current, remove...)
	if filtered == nil {
		return []string{}
	}
	return filtered
}

// resolveImage picks, in order: the explicit image, the first provided song's
// image, the existing image, the default placeholder.
func resolveImage(explicit string, songs []models.SongSummary, existing string) string {
	if explicit != "" {
		return explicit
	}
	if len(songs) > 0 && songs[0].ImageURL != "" {
		return songs[0].ImageURL
	}
	if existing != "" {
		return existing
	}
	return DefaultImageURL
}
