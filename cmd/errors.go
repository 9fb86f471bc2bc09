package cmd

import (
	"errors"
	"os"

	"github.com/teemow/gtool/internal/config"
	"github.com/teemow/gtool/internal/daterange"
	"github.com/teemow/gtool/internal/google"
	"github.com/teemow/gtool/internal/retry"
	"github.com/teemow/gtool/internal/scheduler"
)

// describeError turns err into the message printed before exiting.
func describeError(err error) string {
	msg := "Error: " + err.Error()

	switch {
	case errors.Is(err, google.ErrNoToken), errors.Is(err, google.ErrScopesChanged):
		return msg + "\nRun 'gtool auth login' to authorize gtool."
	case errors.Is(err, os.ErrNotExist) && !errors.Is(err, config.ErrInvalidConfig):
		return msg + "\nCheck that credentials_file points to the OAuth client JSON downloaded from the Google Cloud console."
	case errors.Is(err, config.ErrInvalidConfig):
		return msg + "\nFix the configuration file or run 'gtool config init'."
	case errors.Is(err, scheduler.ErrInvalidParameters), errors.Is(err, daterange.ErrInvalidRange):
		return msg + "\nSee 'gtool free --help' for the accepted values."
	}

	category, ok := retry.CategoryOf(err)
	if !ok {
		return msg
	}
	switch category {
	case retry.CategoryAuth:
		return msg + "\nAuthorization failed. Run 'gtool auth login' and make sure the required scopes are granted."
	case retry.CategoryQuota:
		if errors.Is(err, retry.ErrRetriesExhausted) {
			return msg + "\nThe Google API rate limit was still exceeded after retrying. Try again later."
		}
		return msg + "\nThe Google API rate limit was exceeded. Try again later."
	case retry.CategoryTransient:
		if errors.Is(err, retry.ErrRetriesExhausted) {
			return msg + "\nGoogle kept failing after retrying. Try again later or raise retry.max_retries."
		}
		return msg + "\nGoogle reported a temporary failure. Try again later."
	default:
		return msg
	}
}
