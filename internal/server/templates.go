package server

const blockStatsTemplateName = "block_stats"

// rows come in the order of TweakMetrics, newest block first
const blockStatsHTML = `<html><body><table border='1'><tr><th>Block Hash</th><th>Tweak Count</th></tr>` +
	`{{range .}}<tr><td>{{.BlockHash}}</td><td>{{.TweakCount}}</td></tr>{{end}}` +
	`</table></body></html>`
