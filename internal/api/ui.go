package api

import (
	"net/http"
)

const monitorUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>QuestForge - Event Stream</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #16213e;
            padding: 12px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        header h1 { font-size: 16px; font-weight: normal; }
        #status {
            padding: 4px 10px;
            border-radius: 4px;
            font-size: 12px;
        }
        #status.connected { background: #1b4332; color: #95d5b2; }
        #status.disconnected { background: #7f1d1d; color: #fca5a5; }
        #status.connecting { background: #78350f; color: #fcd34d; }
        main {
            flex: 1;
            overflow: hidden;
            display: flex;
            flex-direction: column;
        }
        #events {
            flex: 1;
            overflow-y: auto;
            padding: 10px;
        }
        .event {
            padding: 8px 12px;
            margin-bottom: 4px;
            background: #16213e;
            border-radius: 4px;
            border-left: 3px solid #0f3460;
            font-size: 13px;
            display: flex;
            gap: 12px;
            align-items: baseline;
        }
        .event.level-error { border-left-color: #dc2626; background: #1f1515; }
        .event.level-info { border-left-color: #2563eb; }
        .event.scope-quest { border-left-color: #7c3aed; }
        .event.scope-node { border-left-color: #0891b2; }
        .event.scope-edge { border-left-color: #059669; }
        .event.scope-session { border-left-color: #db2777; }
        .event.scope-metadata { border-left-color: #d97706; }
        .ts { color: #6b7280; font-size: 11px; min-width: 90px; }
        .name { color: #60a5fa; font-weight: bold; min-width: 140px; }
        .id { color: #a78bfa; }
        .msg { color: #9ca3af; }
        footer {
            background: #16213e;
            padding: 8px 20px;
            border-top: 1px solid #0f3460;
            font-size: 11px;
            color: #6b7280;
        }
        .controls {
            background: #16213e;
            padding: 10px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            gap: 10px;
            align-items: center;
            flex-wrap: wrap;
        }
        .control-group {
            display: flex;
            gap: 6px;
            align-items: center;
        }
        .control-group label {
            font-size: 12px;
            color: #9ca3af;
        }
        .control-group input {
            background: #1a1a2e;
            border: 1px solid #0f3460;
            border-radius: 4px;
            padding: 6px 10px;
            color: #eee;
            font-family: monospace;
            font-size: 12px;
            width: 160px;
        }
        .control-group input:focus {
            outline: none;
            border-color: #2563eb;
        }
        .control-group button {
            background: #2563eb;
            border: none;
            border-radius: 4px;
            padding: 6px 12px;
            color: #fff;
            font-family: monospace;
            font-size: 12px;
            cursor: pointer;
        }
        .control-group button:hover {
            background: #1d4ed8;
        }
    </style>
</head>
<body>
    <header>
        <h1>QuestForge - Event Stream</h1>
        <span id="status" class="disconnected">Disconnected</span>
    </header>
    <div class="controls">
        <div class="control-group">
            <label>Quest filter:</label>
            <input type="text" id="questFilter" placeholder="e.g. Demo.Gate">
            <button onclick="clearFilter()">Clear</button>
        </div>
    </div>
    <main>
        <div id="events"></div>
    </main>
    <footer>
        <span id="count">0</span> events | WebSocket: /ws/events
    </footer>

    <script>
        const eventsDiv = document.getElementById('events');
        const statusEl = document.getElementById('status');
        const countEl = document.getElementById('count');
        const filterInput = document.getElementById('questFilter');
        let eventCount = 0;
        let ws = null;
        let reconnectTimer = null;

        function formatTime(ts) {
            try {
                const d = new Date(ts);
                return d.toLocaleTimeString('en-US', { hour12: false });
            } catch {
                return ts;
            }
        }

        function getScope(name) {
            const parts = name.split('.');
            return parts[0] || '';
        }

        function renderEvent(e) {
            const filter = filterInput.value.trim();
            if (filter && e.questId && e.questId !== filter) return;

            const div = document.createElement('div');
            div.className = 'event level-' + e.level + ' scope-' + getScope(e.event);

            let idText = e.questId || '';
            if (!idText && e.fields) {
                if (e.fields.node_id !== undefined) idText = 'node ' + e.fields.node_id;
                else if (e.fields.edge_id) idText = e.fields.edge_id;
            }

            div.innerHTML =
                '<span class="ts">' + formatTime(e.ts) + '</span>' +
                '<span class="name">' + e.event + '</span>' +
                (idText ? '<span class="id">' + idText + '</span>' : '') +
                (e.msg ? '<span class="msg">' + e.msg + '</span>' : '');

            eventsDiv.appendChild(div);
            eventCount++;
            countEl.textContent = eventCount;

            // Auto-scroll to bottom
            eventsDiv.scrollTop = eventsDiv.scrollHeight;

            // Limit displayed events to prevent memory issues
            while (eventsDiv.children.length > 500) {
                eventsDiv.removeChild(eventsDiv.firstChild);
            }
        }

        function clearFilter() {
            filterInput.value = '';
        }

        function setStatus(status) {
            statusEl.className = status;
            statusEl.textContent = status.charAt(0).toUpperCase() + status.slice(1);
        }

        function connect() {
            if (ws && ws.readyState === WebSocket.OPEN) return;

            setStatus('connecting');

            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + location.host + '/ws/events');

            ws.onopen = function() {
                setStatus('connected');
                if (reconnectTimer) {
                    clearTimeout(reconnectTimer);
                    reconnectTimer = null;
                }
            };

            ws.onmessage = function(msg) {
                try {
                    const e = JSON.parse(msg.data);
                    renderEvent(e);
                } catch (err) {
                    console.error('Failed to parse event:', err);
                }
            };

            ws.onclose = function() {
                setStatus('disconnected');
                scheduleReconnect();
            };

            ws.onerror = function(err) {
                console.error('WebSocket error:', err);
                ws.close();
            };
        }

        function scheduleReconnect() {
            if (reconnectTimer) return;
            reconnectTimer = setTimeout(function() {
                reconnectTimer = null;
                connect();
            }, 3000);
        }

        // Initial connection
        connect();
    </script>
</body>
</html>`

// uiHandler serves the built-in event stream monitor page.
func uiHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(monitorUIHTML))
}
