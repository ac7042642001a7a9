package services

import (
	"fmt"
	"strings"

	"github.com/Dosada05/arena-hub/models"
	"github.com/Dosada05/arena-hub/storage"
)

var allowedTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusOpen:       {models.StatusInProgress, models.StatusPaused, models.StatusConcluded},
	models.StatusPaused:     {models.StatusOpen, models.StatusInProgress, models.StatusConcluded},
	models.StatusInProgress: {models.StatusPaused, models.StatusConcluded},
	models.StatusConcluded:  {},
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func removeString(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func populateImageURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament == nil || tournament.ImageKey == nil || *tournament.ImageKey == "" || uploader == nil {
		return
	}
	if url := uploader.GetPublicURL(*tournament.ImageKey); url != "" {
		tournament.ImageURL = &url
	}
}

// GetExtensionFromContentType принимает только картинки.
func GetExtensionFromContentType(contentType string) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}
