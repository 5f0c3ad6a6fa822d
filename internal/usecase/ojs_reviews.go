package usecase

import "github.com/journal-portal/backend/pkg/ojs"

// importReviews always imports nothing: the review rounds OJS embeds in a
// submission carry no reviewer identity, so there is nothing to attach a
// local review to.
func (u *ImportUsecase) importReviews(remote *ojs.Submission) int {
	if n := len(remote.ReviewRounds); n > 0 {
		u.logger.Debug("review rounds not imported", "ojs_submission_id", remote.ID, "rounds", n)
	}
	return 0
}
