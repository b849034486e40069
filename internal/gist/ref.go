package gist

import (
	"fmt"
	"net/url"
	"strings"
)

// DocumentRef は生URLから復元したドキュメントの所在。
// Revisionが空の場合は最新リビジョンを指す。
type DocumentRef struct {
	Owner    string
	ID       string
	Revision string
	File     string
}

// ParseRawURL は https://gist.githubusercontent.com/<owner>/<id>/raw[/<rev>]/<file> 形式の
// URLを解析する。クエリ文字列は無視する。
func ParseRawURL(raw string) (DocumentRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return DocumentRef{}, fmt.Errorf("%w: %v", ErrInvalidRawURL, err)
	}
	if u.Host != RawHost {
		return DocumentRef{}, fmt.Errorf("%w: unexpected host %q", ErrInvalidRawURL, u.Host)
	}

	// エスケープ済みパスで分割し、各セグメントを一度だけデコードする。
	parts := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	for i, p := range parts {
		seg, err := url.PathUnescape(p)
		if err != nil {
			return DocumentRef{}, fmt.Errorf("%w: %v", ErrInvalidRawURL, err)
		}
		parts[i] = seg
	}
	var ref DocumentRef
	switch {
	case len(parts) == 4 && parts[2] == "raw":
		ref = DocumentRef{Owner: parts[0], ID: parts[1], File: parts[3]}
	case len(parts) == 5 && parts[2] == "raw":
		ref = DocumentRef{Owner: parts[0], ID: parts[1], Revision: parts[3], File: parts[4]}
	default:
		return DocumentRef{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidRawURL, u.Path)
	}

	for _, s := range []string{ref.Owner, ref.ID, ref.File} {
		if s == "" {
			return DocumentRef{}, fmt.Errorf("%w: empty path segment", ErrInvalidRawURL)
		}
	}
	return ref, nil
}

// RawURL は参照を生URLに戻す。
func (r DocumentRef) RawURL() string {
	return "https://" + RawHost + r.path()
}

func (r DocumentRef) path() string {
	p := "/" + r.Owner + "/" + r.ID + "/raw"
	if r.Revision != "" {
		p += "/" + r.Revision
	}
	return p + "/" + url.PathEscape(r.File)
}
