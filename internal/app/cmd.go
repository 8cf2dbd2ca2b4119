package app

// Command は planeats バイナリのサブコマンド。
type Command string

const (
	// CommandServe はWebフロントを起動する。
	CommandServe Command = "serve"
	// CommandHealthcheck は稼働中のサーバーの /health を確認して終了する。
	// シェルを持たないコンテナイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// healthcheck以外は引数なしを含めてすべてserveとして扱う。
func ParseCommand(args []string) Command {
	if len(args) > 0 && Command(args[0]) == CommandHealthcheck {
		return CommandHealthcheck
	}
	return CommandServe
}
