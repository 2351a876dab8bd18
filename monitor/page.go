package monitor

import "net/http"

func handleGetPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(htmlPage))
}

var htmlPage = `<html>
<head>
	<title>PSP Emulator</title>
</head>
<body style="background-color: #1E1E1E; color: white;">
	<h1 style="display: inline-block;">PSP Emulator</h1>
	<button id="runButton" style="margin-left: 50px; height: 40px; width: 80px;">RUN</button>
	<button id="pauseButton" style="margin-left: 10px; height: 40px; width: 80px;">PAUSE</button>
	<h2>Threads</h2>
	<table id="threads" style="font-family: monospace;"></table>
	<h2>Console</h2>
	<div style="width: 980px; padding: 10px; font-size: 1.2em; font-family: monospace; background-color: black; height: 300px; overflow-y: auto; border: 2px solid white;" id="console"></div>
	<h2>Log</h2>
	<div style="width: 980px; padding: 10px; font-family: monospace; background-color: black; height: 200px; overflow-y: auto; border: 2px solid gray;" id="log"></div>

	<script>
		var socket;
		var consoleText = "";

		function refreshThreads() {
			fetch("/status").then(r => r.json()).then(status => {
				if (!status.threads) {
					return;
				}
				var rows = "<tr><th>id</th><th>name</th><th>prio</th><th>status</th><th>pc</th></tr>";
				for (const t of status.threads) {
					rows += "<tr><td>" + t.id + "</td><td>" + t.name + "</td><td>" + t.priority + "</td><td>" + t.status +
						"</td><td>0x" + t.pc.toString(16).padStart(8, "0") + "</td></tr>";
				}
				document.getElementById("threads").innerHTML = rows;
			});
		}

		function connect() {
			socket = new WebSocket("ws://" + location.host + "/events");
			socket.onmessage = function(event) {
				var data = JSON.parse(event.data);
				if (data.type == "console" || data.type == "fault") {
					consoleText += data.text.replaceAll("\n", "<br/>");
					document.getElementById("console").innerHTML = consoleText;
				} else if (data.type == "log") {
					document.getElementById("log").innerHTML += data.text + "<br/>";
				} else {
					refreshThreads();
				}
			};
			// reconnect every 3 seconds
			socket.onclose = function() {
				setTimeout(connect, 3000);
			};
		}
		connect();
		refreshThreads();

		document.getElementById("runButton").onclick = function() {
			consoleText = "";
			socket.send(JSON.stringify({type: "run"}));
		};
		document.getElementById("pauseButton").onclick = function() {
			socket.send(JSON.stringify({type: "pause"}));
		};
	</script>
</body>
</html>`
