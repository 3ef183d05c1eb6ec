package http

const homePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>TinyLink</title>
<style>
body{font-family:sans-serif;max-width:40rem;margin:4rem auto;padding:0 1rem;color:#333}
h1{color:#2563eb}
code{background:#f3f4f6;padding:.15rem .35rem;border-radius:4px}
</style>
</head>
<body>
<h1>TinyLink</h1>
<p>A URL shortening service. See the <a href="/swagger/index.html">API documentation</a>.</p>
<p>Shorten a URL with <code>POST /api/v1/shorten</code> and follow it at <code>/r/{code}</code>.</p>
</body>
</html>
`

const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Link Not Found</title>
<style>
body{font-family:sans-serif;max-width:40rem;margin:4rem auto;padding:0 1rem;color:#333;text-align:center}
h1{font-size:4rem;color:#2563eb;margin-bottom:0}
</style>
</head>
<body>
<h1>404</h1>
<p>This short link does not exist. It may have been mistyped or deleted.</p>
<p><a href="/">Back to TinyLink</a></p>
</body>
</html>
`

const expiredPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Link Expired</title>
<style>
body{font-family:sans-serif;max-width:40rem;margin:4rem auto;padding:0 1rem;color:#333;text-align:center}
h1{font-size:4rem;color:#2563eb;margin-bottom:0}
</style>
</head>
<body>
<h1>410</h1>
<p>This short link has expired and is no longer available.</p>
<p><a href="/">Back to TinyLink</a></p>
</body>
</html>
`
