package twitch

// gqlRequest is the GraphQL envelope for the playback access token exchange.
type gqlRequest struct {
	OperationName string       `json:"operationName"`
	Query         string       `json:"query"`
	Variables     gqlVariables `json:"variables"`
}

type gqlVariables struct {
	IsLive     bool   `json:"isLive"`
	Login      string `json:"login"`
	IsVod      bool   `json:"isVod"`
	VodID      string `json:"vodID"`
	PlayerType string `json:"playerType"`
}

// accessTokenResponse mirrors the nested response shape. The token field is
// optional: it is absent when the video does not exist or is not playable.
type accessTokenResponse struct {
	Data accessTokenData `json:"data"`
}

type accessTokenData struct {
	VideoPlaybackAccessToken *playbackAccessToken `json:"videoPlaybackAccessToken"`
}

type playbackAccessToken struct {
	Value     string `json:"value"`
	Signature string `json:"signature"`
}

const accessTokenQuery = `query PlaybackAccessToken_Template($login: String!, $isLive: Boolean!, $vodID: ID!, $isVod: Boolean!, $playerType: String!) {  streamPlaybackAccessToken(channelName: $login, params: {platform: "web", playerBackend: "mediaplayer", playerType: $playerType}) @include(if: $isLive) {    value    signature    __typename  }  videoPlaybackAccessToken(id: $vodID, params: {platform: "web", playerBackend: "mediaplayer", playerType: $playerType}) @include(if: $isVod) {    value    signature    __typename  }}`
