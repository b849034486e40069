// Command samkitchen はレシピ生成Webサーバーとその運用サブコマンドを起動する。
//
// 使い方:
//
//	samkitchen [serve]                 Webサーバーを起動する
//	samkitchen migrate [up|down [N]|version]
//	samkitchen generate [BASE_URL]     標準入力のFilterInputで稼働中のサーバーに生成を依頼する
//	samkitchen healthcheck             /health を確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/samkitchen/internal/app"
)

func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "samkitchen: %v\n", err)
		os.Exit(1)
	}
}
