package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Starting export to %s":                  "%s へのエクスポートを開始します",
		"Rendering %d frames at %dx%d, %.2f fps": "%d フレームを %dx%d, %.2f fps でレンダリングします",
		"Encoded %d frames (%d bytes) in %v":     "%d フレーム (%d バイト) を %v でエンコードしました",
		"Output saved to %s":                     "出力を %s に保存しました",
		"Export attempt %d of %d failed: %v":     "エクスポート試行 %d/%d が失敗しました: %v",
		"Retrying export (attempt %d/%d)":        "エクスポートを再試行します (試行 %d/%d)",
		"Export cancelled":                       "エクスポートがキャンセルされました",
		"Export failed: %v":                      "エクスポートに失敗しました: %v",
		"Suggestion: %s":                         "対処: %s",
		"Interrupted, shutting down...":          "中断されました。シャットダウン中...",
		"%s: %s":                                 "%s: %s",

		// Preflight stage
		"Preflight %s %s: %s":                              "事前チェック %s %s: %s",
		"Export setting %s: %s":                            "エクスポート設定 %s: %s",
		"Audio file %s not found, exporting without audio": "音声ファイル %s が見つからないため、音声なしでエクスポートします",

		// Stage timing
		"Stage %s finished in %s":      "ステージ %s が %s で完了しました",
		"Stage %s failed after %s: %v": "ステージ %s が %s 後に失敗しました: %v",

		// Capture component
		"Capture engine initialized: %dx%d at %.2f fps, %s": "キャプチャエンジンを初期化しました: %dx%d, %.2f fps, %s",
		"Capturing %d frames":                               "%d フレームをキャプチャ中",
		"Captured %d/%d frames":                             "%d/%d フレームをキャプチャしました",
		"Capture finished: %d captured, %d dropped in %v":   "キャプチャ完了: %d キャプチャ, %d ドロップ (%v)",
		"Capture stopped: %v":                               "キャプチャを停止しました: %v",
		"Capture did not stop within %v":                    "キャプチャが %v 以内に停止しませんでした",
		"Frame %d capture failed: %v":                       "フレーム %d のキャプチャに失敗しました: %v",

		// Export component
		"Starting encoder: %s":                           "エンコーダを起動中: %s",
		"Encoder started with pid %d for %d frames":      "エンコーダを起動しました (pid %d, %d フレーム)",
		"Streaming %d frames to the encoder":             "%d フレームをエンコーダへ送信中",
		"Skipping frame: %v":                             "フレームをスキップします: %v",
		"Stopping encoder after writer failure: %v":      "書き込み失敗のためエンコーダを停止します: %v",
		"Export %s finished: %d frames, %d bytes":        "エクスポート %s 完了: %d フレーム, %d バイト",
		"Export %s failed after %d frames: %v":           "エクスポート %s は %d フレーム後に失敗しました: %v",
		"Cancelling export %s":                           "エクスポート %s をキャンセル中",
		"Export %s did not stop within %v":               "エクスポート %s が %v 以内に停止しませんでした",
		"Removing partial output %s":                     "不完全な出力 %s を削除します",
		"Cleanup failed: %v":                             "後片付けに失敗しました: %v",
		"Sending SIGTERM to pid %d":                      "pid %d に SIGTERM を送信します",
		"Encoder did not exit within %v, killing pid %d": "エンコーダが %v 以内に終了しないため pid %d を強制終了します",
		"Encoder pid %d still running after kill":        "強制終了後もエンコーダ pid %d が実行中です",
		"Terminate encoder: %v":                          "エンコーダの終了に失敗しました: %v",
		"Kill encoder: %v":                               "エンコーダの強制終了に失敗しました: %v",
		"Encoder stderr read stopped: %v":                "エンコーダの標準エラー読み取りが停止しました: %v",
		"ffmpeg: %s":                                     "ffmpeg: %s",
		"ffmpeg warning: %s":                             "ffmpeg 警告: %s",
		"ffmpeg error: %s":                               "ffmpeg エラー: %s",
		"Probed ffmpeg %s at %s":                         "ffmpeg %s を %s で検出しました",
		"Failed to save debug frame %d: %v":              "デバッグフレーム %d の保存に失敗しました: %v",
		"Failed to save encoder command: %v":             "エンコーダコマンドの保存に失敗しました: %v",
		"Failed to save encoder log: %v":                 "エンコーダログの保存に失敗しました: %v",
		"Encoding stats failed: %v":                      "統計のエンコードに失敗しました: %v",
		"Saving stats failed: %v":                        "統計の保存に失敗しました: %v",

		// Batch component
		"Starting batch of %d jobs, %d at a time":               "%d 件のジョブを同時 %d 件で開始します",
		"Batch finished: %d completed, %d failed, %d cancelled": "バッチ完了: 成功 %d, 失敗 %d, キャンセル %d",
		"Job %s %s":             "ジョブ %s: %s",
		"Cleanup of job %s: %v": "ジョブ %s の後片付け: %v",

		// Process runner
		"Started %s (pid %d)": "%s を起動しました (pid %d)",
		"Killing pid %d":      "pid %d を強制終了します",

		// Verify stage
		"Probed %s: %s %dx%d, %d frames, %.2fs": "%s を解析: %s %dx%d, %d フレーム, %.2f秒",
		"Skipping container probe for %s":       "%s のコンテナ解析をスキップします",
		"Output check: %s":                      "出力チェック: %s",
	})
}
