package report

// wrapInEmailTemplate wraps HTML content in a styled email template
func wrapInEmailTemplate(content string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
      line-height: 1.5;
      color: #222;
      max-width: 680px;
      margin: 0 auto;
      padding: 16px;
      background-color: #f4f6f8;
    }
    .content {
      background-color: #fff;
      padding: 24px;
      border-radius: 8px;
      border-top: 4px solid #00a86b;
    }
    h1 { font-size: 22px; margin-top: 0; }
    h2 { font-size: 17px; margin: 24px 0 8px; }
    p { margin: 8px 0; }
    table { border-collapse: collapse; margin: 8px 0; }
    th, td { border: 1px solid #e2e2e2; padding: 4px 12px; text-align: right; font-variant-numeric: tabular-nums; }
    th { background: #f4f6f8; }
    em { color: #888; }
    a { color: #0066cc; text-decoration: none; word-break: break-all; }
    .footer { margin-top: 24px; font-size: 12px; color: #888; }
  </style>
</head>
<body>
  <div class="content">
    ` + content + `
  </div>
  <div class="footer">
    <p>Demo market data. Not investment advice.</p>
  </div>
</body>
</html>`
}
