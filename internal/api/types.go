package api

import "encoding/json"

// uploadURLRequest is the body of POST /upload/youtube.
type uploadURLRequest struct {
	URL string `json:"url"`
}

// errorBody is the JSON error response. Detail is usually a string but
// validation failures carry a list of objects.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b errorBody) message() string {
	var s string
	if json.Unmarshal(b.Detail, &s) == nil {
		return s
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(b.Detail, &list) == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}
