package http

const indexPage = `<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Puls Events {{.City}}</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
        #messages { border: 1px solid #ddd; border-radius: 8px; padding: 1rem; min-height: 320px; overflow-y: auto; }
        .message { margin: .5rem 0; white-space: pre-wrap; }
        .user { text-align: right; color: #1a4fa0; }
        .assistant { color: #222; }
        .meta { font-size: .75rem; color: #888; }
        form { display: flex; gap: .5rem; margin-top: 1rem; }
        input { flex: 1; padding: .5rem; }
    </style>
</head>
<body>
    <h1>Puls Events {{.City}}</h1>
    <div id="messages"></div>
    <form id="chat-form">
        <input type="text" id="message" placeholder="Quels concerts ce week-end ?" autocomplete="off" required>
        <button type="submit">Envoyer</button>
        <button type="button" id="reset">Nouvelle conversation</button>
    </form>
    <script>
        let sessionId = localStorage.getItem('pulsevents_session') || '';
        const messages = document.getElementById('messages');

        function append(role, text, meta) {
            const div = document.createElement('div');
            div.className = 'message ' + role;
            div.textContent = text;
            if (meta) {
                const small = document.createElement('div');
                small.className = 'meta';
                small.textContent = meta;
                div.appendChild(small);
            }
            messages.appendChild(div);
            messages.scrollTop = messages.scrollHeight;
        }

        async function loadHistory() {
            if (!sessionId) return;
            const res = await fetch('/api/sessions/' + encodeURIComponent(sessionId) + '/history');
            if (!res.ok) return;
            const data = await res.json();
            data.messages.forEach(m => append(m.role, m.content));
        }

        document.getElementById('chat-form').addEventListener('submit', async (e) => {
            e.preventDefault();
            const input = document.getElementById('message');
            const text = input.value.trim();
            if (!text) return;
            input.value = '';
            append('user', text);

            const res = await fetch('/api/chat', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ session_id: sessionId, message: text })
            });
            const data = await res.json();
            if (!res.ok) {
                append('assistant', 'Erreur: ' + data.error);
                return;
            }
            sessionId = data.session_id;
            localStorage.setItem('pulsevents_session', sessionId);
            const c = data.classification;
            append('assistant', data.answer, c.tier + ' · ' + c.reason + ' (' + c.confidence + ')');
        });

        document.getElementById('reset').addEventListener('click', async () => {
            messages.innerHTML = '';
            if (sessionId) {
                await fetch('/api/sessions/' + encodeURIComponent(sessionId), { method: 'DELETE' });
                await loadHistory();
            }
        });

        loadHistory();
    </script>
</body>
</html>`
