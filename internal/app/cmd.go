package app

import "strconv"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandGenerate は標準入力のFilterInputで稼働中のサーバーにレシピ生成を依頼する。
	CommandGenerate Command = "generate"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	case "generate":
		return CommandGenerate
	default:
		return CommandServe
	}
}

// MigrateAction はmigrateサブコマンドの動作。
type MigrateAction string

const (
	// MigrateUp は未適用のマイグレーションをすべて適用する。
	MigrateUp MigrateAction = "up"
	// MigrateDown は指定ステップ数（既定1）だけロールバックする。
	MigrateDown MigrateAction = "down"
	// MigrateVersion は現在のバージョンを表示する。
	MigrateVersion MigrateAction = "version"
)

// ParseMigrateAction はmigrate以降の引数から動作とステップ数を解析する。
// 不明な動作はMigrateUpとして扱う。
func ParseMigrateAction(args []string) (MigrateAction, int) {
	if len(args) == 0 {
		return MigrateUp, 0
	}
	switch args[0] {
	case "down":
		steps := 1
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
				steps = n
			}
		}
		return MigrateDown, steps
	case "version":
		return MigrateVersion, 0
	default:
		return MigrateUp, 0
	}
}
