package series

import "github.com/google/uuid"

// FetchToken identifies one issued fetch generation. Exactly one token is
// current per session; results carrying any other token are discarded.
type FetchToken string

func newFetchToken() FetchToken {
	return FetchToken(uuid.NewString())
}
