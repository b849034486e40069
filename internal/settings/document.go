package settings

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/samkitchen/internal/model"
)

// ErrNotObject はドキュメントのトップレベルがJSONオブジェクトでない場合のエラー。
var ErrNotObject = errors.New("settings: document is not a JSON object")

// DecodeDocument は設定ドキュメント（ローカルキャッシュ、リモート、インポートファイル）を
// 明示的なスキーマに沿って検証し、SettingsPatchに変換する。
// 未知のフィールド、型が合わないフィールド、nullのフィールドは適用せず、droppedに名前を返す。
// 広告リストのうちオブジェクトでない要素は除外し、文字列でない広告フィールドは空文字として扱う。
func DecodeDocument(data []byte) (model.SettingsPatch, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.SettingsPatch{}, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if raw == nil {
		return model.SettingsPatch{}, nil, ErrNotObject
	}

	var (
		patch   model.SettingsPatch
		dropped []string
	)

	stringField := func(key string, dst **string) {
		v, ok := raw[key]
		if !ok {
			return
		}
		delete(raw, key)
		var s *string
		if err := json.Unmarshal(v, &s); err != nil || s == nil {
			dropped = append(dropped, key)
			return
		}
		*dst = s
	}

	stringField("subscriptionMessage", &patch.SubscriptionMessage)
	stringField("subscriptionChannelLink", &patch.SubscriptionChannelLink)
	stringField("adminUsername", &patch.AdminUsername)
	stringField("adminPassword", &patch.AdminPassword)
	stringField("gistUrl", &patch.GistURL)
	stringField("githubToken", &patch.GithubToken)

	if v, ok := raw["advertisements"]; ok {
		delete(raw, "advertisements")
		ads, adDropped, ok := decodeAdvertisements(v)
		dropped = append(dropped, adDropped...)
		if ok {
			patch.Advertisements = &ads
		} else {
			dropped = append(dropped, "advertisements")
		}
	}

	for key := range raw {
		dropped = append(dropped, key)
	}

	return patch, dropped, nil
}

func decodeAdvertisements(data json.RawMessage) ([]model.Advertisement, []string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return nil, nil, false
	}

	var dropped []string
	ads := make([]model.Advertisement, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			dropped = append(dropped, fmt.Sprintf("advertisements[%d]", i))
			continue
		}

		var ad model.Advertisement
		for key, dst := range map[string]*string{
			"imageUrl": &ad.ImageURL,
			"text":     &ad.Text,
			"linkUrl":  &ad.LinkURL,
		} {
			v, ok := fields[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(v, dst); err != nil {
				*dst = ""
				dropped = append(dropped, fmt.Sprintf("advertisements[%d].%s", i, key))
			}
		}
		ads = append(ads, ad)
	}
	return ads, dropped, true
}

// EncodeDocument はローカルキャッシュに保存する形式にSettingsをエンコードする。
func EncodeDocument(s model.Settings) (string, error) {
	if s.Advertisements == nil {
		s.Advertisements = []model.Advertisement{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("settings: encoding document: %w", err)
	}
	return string(data), nil
}

// RemotePayload はリモートドキュメントに書き込む内容を返す。
// 同期先アドレスと書き込み用トークンは含めない。
func RemotePayload(s model.Settings) ([]byte, error) {
	data, err := json.MarshalIndent(s.Remote(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("settings: encoding remote payload: %w", err)
	}
	return data, nil
}
