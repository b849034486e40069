package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/samkitchen/internal/model"
)

// GeneratePath はプロキシモードの生成エンドポイント。
const GeneratePath = "/api/generate"

// maxProxyResponseSize はプロキシ応答の最大サイズ。
const maxProxyResponseSize = 1 << 20

// ProxyErrorBody は/api/generateのエラーレスポンス。
type ProxyErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// ProxyClient は同一オリジンの/api/generateへFilterInputのみを送るGenerator（プロキシモード）。
// 生成APIの認証情報はサーバー側に留まる。
type ProxyClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewProxyClient はProxyClientを生成する。baseURLはサーバーのオリジン（例: http://localhost:8080）。
func NewProxyClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *ProxyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Generate はFilterInputをJSONでPOSTし、レシピを受け取る。
func (c *ProxyClient) Generate(ctx context.Context, in model.FilterInput) (*model.Recipe, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, newGenerationError(KindConfig, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(payload))
	if err != nil {
		return nil, newGenerationError(KindConfig, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("generate proxy unreachable", slog.String("error", err.Error()))
		return nil, newGenerationError(KindTransport, "generate proxy unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyResponseSize))
	if err != nil {
		return nil, newGenerationError(KindTransport, "failed to read proxy response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody ProxyErrorBody
		cause := fmt.Sprintf("generate proxy returned status %d", resp.StatusCode)
		if json.Unmarshal(body, &errBody) == nil && errBody.Details != "" {
			cause = fmt.Sprintf("%s: %s", cause, errBody.Details)
		}
		c.logger.Error("generate proxy returned an error",
			slog.Int("http_status", resp.StatusCode),
			slog.String("details", errBody.Details),
		)
		return nil, newGenerationError(KindStatus, cause, nil)
	}

	return DecodeRecipe(strings.TrimSpace(string(body)), c.logger)
}
