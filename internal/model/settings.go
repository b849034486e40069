package model

// Advertisement は広告バナーを表す。
// ImageURLはURLまたはdata URL（管理画面からアップロードされた画像）。
type Advertisement struct {
	ImageURL string `json:"imageUrl"`
	Text     string `json:"text"`
	LinkURL  string `json:"linkUrl"`
}

// Renderable は3つのフィールドがすべて空でない場合にtrueを返す。
// 表示対象はこれを満たす広告のみ。
func (a Advertisement) Renderable() bool {
	return a.ImageURL != "" && a.Text != "" && a.LinkURL != ""
}

// Settings はサブスクリプション誘導、広告、管理者認証情報、リモート同期先を制御する設定ドキュメント。
// 管理者パスワードとGitHubトークンは平文で保持される（既知の弱点）。
type Settings struct {
	SubscriptionMessage     string          `json:"subscriptionMessage"`
	SubscriptionChannelLink string          `json:"subscriptionChannelLink"`
	Advertisements          []Advertisement `json:"advertisements"`
	AdminUsername           string          `json:"adminUsername"`
	AdminPassword           string          `json:"adminPassword"`
	GistURL                 string          `json:"gistUrl"`
	GithubToken             string          `json:"githubToken"`
}

// RenderableAdvertisements は表示可能な広告のみを元の順序で返す。
func (s Settings) RenderableAdvertisements() []Advertisement {
	ads := make([]Advertisement, 0, len(s.Advertisements))
	for _, ad := range s.Advertisements {
		if ad.Renderable() {
			ads = append(ads, ad)
		}
	}
	return ads
}

// Clone は広告スライスを複製したコピーを返す。
func (s Settings) Clone() Settings {
	c := s
	if s.Advertisements != nil {
		c.Advertisements = make([]Advertisement, len(s.Advertisements))
		copy(c.Advertisements, s.Advertisements)
	}
	return c
}

// SettingsPatch はトップレベルフィールド単位の上書き内容を表す。
// nilのフィールドは「未定義」として扱い、マージ時に元の値を保持する。
type SettingsPatch struct {
	SubscriptionMessage     *string          `json:"subscriptionMessage,omitempty"`
	SubscriptionChannelLink *string          `json:"subscriptionChannelLink,omitempty"`
	Advertisements          *[]Advertisement `json:"advertisements,omitempty"`
	AdminUsername           *string          `json:"adminUsername,omitempty"`
	AdminPassword           *string          `json:"adminPassword,omitempty"`
	GistURL                 *string          `json:"gistUrl,omitempty"`
	GithubToken             *string          `json:"githubToken,omitempty"`
}

// IsEmpty はどのフィールドも定義されていない場合にtrueを返す。
func (p SettingsPatch) IsEmpty() bool {
	return p.SubscriptionMessage == nil &&
		p.SubscriptionChannelLink == nil &&
		p.Advertisements == nil &&
		p.AdminUsername == nil &&
		p.AdminPassword == nil &&
		p.GistURL == nil &&
		p.GithubToken == nil
}

// Apply はパッチのトップレベルフィールドをsに上書きした新しいSettingsを返す（シャローマージ）。
// s自体は変更しない。
func (s Settings) Apply(p SettingsPatch) Settings {
	out := s.Clone()
	if p.SubscriptionMessage != nil {
		out.SubscriptionMessage = *p.SubscriptionMessage
	}
	if p.SubscriptionChannelLink != nil {
		out.SubscriptionChannelLink = *p.SubscriptionChannelLink
	}
	if p.Advertisements != nil {
		out.Advertisements = make([]Advertisement, len(*p.Advertisements))
		copy(out.Advertisements, *p.Advertisements)
	}
	if p.AdminUsername != nil {
		out.AdminUsername = *p.AdminUsername
	}
	if p.AdminPassword != nil {
		out.AdminPassword = *p.AdminPassword
	}
	if p.GistURL != nil {
		out.GistURL = *p.GistURL
	}
	if p.GithubToken != nil {
		out.GithubToken = *p.GithubToken
	}
	return out
}

// RemoteSettings はリモートドキュメントに書き込む内容。
// Settingsから同期先アドレスと書き込み用トークンを除いたもの。
type RemoteSettings struct {
	SubscriptionMessage     string          `json:"subscriptionMessage"`
	SubscriptionChannelLink string          `json:"subscriptionChannelLink"`
	Advertisements          []Advertisement `json:"advertisements"`
	AdminUsername           string          `json:"adminUsername"`
	AdminPassword           string          `json:"adminPassword"`
}

// Remote はリモートドキュメント用の表現を返す。
func (s Settings) Remote() RemoteSettings {
	ads := s.Advertisements
	if ads == nil {
		ads = []Advertisement{}
	}
	return RemoteSettings{
		SubscriptionMessage:     s.SubscriptionMessage,
		SubscriptionChannelLink: s.SubscriptionChannelLink,
		Advertisements:          ads,
		AdminUsername:           s.AdminUsername,
		AdminPassword:           s.AdminPassword,
	}
}
