// Package main provides localization for the karaexport CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":             "入力",
		"Output":            "出力",
		"Video and Quality": "動画と品質",
		"Encoder":           "エンコーダ",
		"Performance":       "パフォーマンス",
		"Debug":             "デバッグ",
		"Logging":           "ログ",

		// Commands
		"Render timed lyrics to video through ffmpeg":                      "タイミング付き歌詞を ffmpeg で動画に書き出します",
		"Render and encode a karaoke video":                                "カラオケ動画をレンダリングしてエンコード",
		"Check settings, ffmpeg and the output location without exporting": "エクスポートせずに設定・ffmpeg・出力先を確認",
		"Show ffmpeg capabilities, or inspect an exported MP4/MOV file":    "ffmpeg の機能を表示、または出力済み MP4/MOV を解析",
		"Show version information":                                         "バージョン情報を表示",
		"karaexport version %s":                                            "karaexport バージョン %s",

		// Input flags
		"YAML configuration file":                                      "YAML 設定ファイル",
		"Audio file muxed into the video":                              "動画に多重化する音声ファイル",
		"Song length in seconds (default: end of the last lyric line)": "曲の長さ（秒、デフォルト: 最後の歌詞行の終了時刻）",
		"Audio sync offset in seconds":                                 "音声同期オフセット（秒）",

		// Output flags
		"Output video file path":                                          "出力動画ファイルパス",
		"Overwrite an existing output file":                               "既存の出力ファイルを上書き",
		"Skip probing the output file":                                    "出力ファイルの検証をスキップ",
		"Write a run summary to file (Markdown, or JSON for .json paths)": "実行サマリーをファイルに出力（Markdown形式、.json の場合は JSON）",

		// Video flags
		"Quality preset (high, medium, low, ultrafast, lossless)": "品質プリセット（high, medium, low, ultrafast, lossless）",
		"Playback target preset (web, mobile)":                    "再生先プリセット（web, mobile）",
		"Resolution preset (480p, 720p, 1080p, 1080p-hq, 4k)":     "解像度プリセット（480p, 720p, 1080p, 1080p-hq, 4k）",
		"Output video width":                                      "出力動画の幅",
		"Output video height":                                     "出力動画の高さ",
		"Frame rate":                                              "フレームレート",
		"Video codec passed to ffmpeg":                            "ffmpeg に渡す動画コーデック",
		"Constant rate factor (0-51, lower is better)":            "CRF値（0-51、低いほど高品質）",
		"Hardware acceleration (nvenc, qsv, vaapi, videotoolbox)": "ハードウェアアクセラレーション（nvenc, qsv, vaapi, videotoolbox）",
		"Path to the ffmpeg binary":                               "ffmpeg 実行ファイルのパス",

		// Performance and debug flags
		"Render frames ahead on a separate goroutine":           "別 goroutine でフレームを先行レンダリング",
		"Retries after a transient failure (default: 3)":        "一時的な失敗後の再試行回数（デフォルト: 3）",
		"Enable debug output":                                   "デバッグ出力を有効化",
		"Directory for debug output":                            "デバッグ出力のディレクトリ",
		"Serve Prometheus metrics on this address (e.g. :9090)": "このアドレスで Prometheus メトリクスを公開（例: :9090）",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Runtime messages
		"Interrupted, shutting down...":             "中断されました。シャットダウン中...",
		"Status: %s":                                "状態: %s",
		"Export %s started":                         "エクスポート %s を開始しました",
		"Progress: %.0f%% (%d/%d frames, %.1f fps)": "進捗: %.0f%% (%d/%d フレーム, %.1f fps)",
		"Serving metrics on %s":                     "%s でメトリクスを公開しています",
		"Metrics server stopped: %v":                "メトリクスサーバーが停止しました: %v",
		"Summary saved to %s":                       "サマリーを %s に保存しました",
		"Failed to write summary: %s":               "サマリーの書き込みに失敗しました: %s",
		"Song length is unknown: set --duration or add lyrics to the config": "曲の長さが不明です: --duration を指定するか設定に歌詞を追加してください",

		// validate and probe output
		"Estimated size: %d bytes, free: %d bytes": "推定サイズ: %d バイト, 空き: %d バイト",
		"Ready to export":                          "エクスポートの準備ができています",
		"Container: %s (fragmented: %v)":           "コンテナ: %s (フラグメント: %v)",
		"Video: %s %dx%d, %d frames, %.2fs":        "動画: %s %dx%d, %d フレーム, %.2f秒",
		"Tracks: %d video, %d audio":               "トラック: 動画 %d, 音声 %d",
		"ffmpeg %s at %s":                          "ffmpeg %s (%s)",
		"Hardware acceleration: %v":                "ハードウェアアクセラレーション: %v",
		"available":                                "利用可能",
		"missing":                                  "なし",
		"info":                                     "情報",
		"warning":                                  "警告",
		"error":                                    "エラー",

		// Summary content
		"Export Summary":        "エクスポートサマリー",
		"Item":                  "項目",
		"Value":                 "値",
		"Result":                "結果",
		"Status":                "状態",
		"Export ID":             "エクスポートID",
		"Attempts":              "試行回数",
		"Elapsed":               "所要時間",
		"Error":                 "エラー",
		"Suggestions":           "対処方法",
		"completed":             "完了",
		"failed":                "失敗",
		"cancelled":             "キャンセル",
		"Settings":              "設定",
		"Resolution":            "解像度",
		"Frame Rate":            "フレームレート",
		"Video Codec":           "動画コーデック",
		"Audio Codec":           "音声コーデック",
		"Container":             "コンテナ",
		"Preset":                "プリセット",
		"Rate Control":          "レート制御",
		"Hardware Acceleration": "ハードウェアアクセラレーション",
		"Frames":                "フレーム",
		"Song Length":           "曲の長さ",
		"Timeline Frames":       "タイムラインのフレーム数",
		"Captured":              "キャプチャ済み",
		"Dropped":               "ドロップ",
		"Written":               "書き込み済み",
		"Skipped":               "スキップ",
		"Audio Offset":          "音声オフセット",
		"Mean Render Time":      "平均レンダリング時間",
		"Encoding Speed":        "エンコード速度",
		"Bitrate":               "ビットレート",
		"Duplicated":            "複製",
		"Encoder Warnings":      "エンコーダの警告",
		"File Size":             "ファイルサイズ",
		"Duration":              "再生時間",
		"Audio":                 "音声",
		"Yes":                   "あり",
		"No":                    "なし",
		"Not inspected":         "未検査",
		"Verification Warnings": "検証の警告",
		"Preflight":             "事前チェック",
		"Generated at":          "生成日時",
	})
}
