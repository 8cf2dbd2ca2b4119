// Command planeats はPlanEatsのWebサーバーを起動する。
//
//	planeats              # serve と同じ
//	planeats serve        # Webサーバーを起動
//	planeats healthcheck  # /health を確認（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/planeats/web/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
