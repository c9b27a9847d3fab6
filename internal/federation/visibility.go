package federation

import (
	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/domain"
)

// activityVisibility classifies an activity by its "to" recipients: the
// public collection means fully federated, the actor's own followers
// collection means followers-only, any other concrete audience is unlisted.
// No recipients, or recipients given only as embedded objects, stay unknown.
func activityVisibility(activity apub.Object, actor domain.User) domain.Visibility {
	if activity.To == nil {
		return domain.VisibilityUnknown
	}

	uris := activity.To.URIs()
	if len(uris) == 0 {
		return domain.VisibilityUnknown
	}

	followers := ""
	if actor.Followers != nil {
		followers = actor.Followers.String()
	}

	visibility := domain.Unlisted
	for _, uri := range uris {
		if uri == apub.PublicCollection {
			return domain.PublicFederated
		}
		if followers != "" && uri == followers {
			visibility = domain.FollowersOnly
		}
	}
	return visibility
}
