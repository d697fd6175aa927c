package browser

// snapshotScript annotates every element in the live DOM, then serialises
// the tree including shadow-root content.
//
// Annotation contract (read by the dom package):
//
//	data-rec-n    numeric id, assigned once and left in place so it stays
//	              stable for as long as the element lives
//	data-rec-hid  "1" when computed style or layout hides the element
//	data-rec-box  "top,left,bottom,right", viewport-relative, rounded
//	data-rec-vp   "width,height" on the document element
//
// Visibility mirrors what the page itself can compute cheaply: display and
// visibility from computed style, plus the offsetParent shortcut for
// everything that is not position:fixed.
const snapshotScript = `() => {
	let next = window.__recNextId || 1;
	let hasShadow = false;

	const visible = (el) => {
		const cs = getComputedStyle(el);
		if (cs.visibility === 'hidden' || cs.display === 'none') return false;
		if (el.offsetParent === null && cs.position !== 'fixed') return false;
		return true;
	};

	const stamp = (el) => {
		if (!el.hasAttribute('data-rec-n')) {
			el.setAttribute('data-rec-n', String(next++));
		}
		if (visible(el)) {
			el.removeAttribute('data-rec-hid');
		} else {
			el.setAttribute('data-rec-hid', '1');
		}
		const r = el.getBoundingClientRect();
		if (r && (r.width || r.height)) {
			el.setAttribute('data-rec-box',
				[r.top, r.left, r.bottom, r.right].map(v => Math.round(v)).join(','));
		} else {
			el.removeAttribute('data-rec-box');
		}
	};

	const walk = (root) => {
		for (const el of root.querySelectorAll('*')) {
			stamp(el);
			if (el.shadowRoot) {
				hasShadow = true;
				walk(el.shadowRoot);
			}
		}
	};
	walk(document);
	document.documentElement.setAttribute('data-rec-vp',
		window.innerWidth + ',' + window.innerHeight);
	window.__recNextId = next;

	if (!hasShadow) return document.documentElement.outerHTML;

	const VOID = new Set(['area', 'base', 'br', 'col', 'embed', 'hr', 'img',
		'input', 'link', 'meta', 'source', 'track', 'wbr']);
	const esc = (s) => s.replace(/&/g, '&amp;').replace(/</g, '&lt;');
	const escAttr = (s) => s.replace(/&/g, '&amp;').replace(/"/g, '&quot;');
	const ser = (node) => {
		if (node.nodeType === Node.TEXT_NODE) return esc(node.data);
		if (node.nodeType !== Node.ELEMENT_NODE) return '';
		const tag = node.tagName.toLowerCase();
		let out = '<' + tag;
		for (const a of node.attributes) {
			out += ' ' + a.name + '="' + escAttr(a.value) + '"';
		}
		out += '>';
		if (VOID.has(tag)) return out;
		// Shadow content replaces the light children, same as rendering.
		const kids = node.shadowRoot ? node.shadowRoot.childNodes : node.childNodes;
		for (const c of kids) out += ser(c);
		return out + '</' + tag + '>';
	};
	return ser(document.documentElement);
}`

// clickScript clicks the element carrying the given annotated id, looking
// through shadow roots. Returns false when the element left the DOM.
const clickScript = `(id) => {
	const find = (root) => {
		const el = root.querySelector('[data-rec-n="' + id + '"]');
		if (el) return el;
		for (const host of root.querySelectorAll('*')) {
			if (host.shadowRoot) {
				const got = find(host.shadowRoot);
				if (got) return got;
			}
		}
		return null;
	};
	const el = find(document);
	if (!el) return false;
	el.click();
	return true;
}`

// patchHookScript wraps the page clipboard so the next patch copy lands in
// a page global instead of (only) the system clipboard. Installing is
// idempotent; every install clears the global so a stale copy from an
// earlier menu round cannot satisfy a later poll.
const patchHookScript = `() => {
	window.__recPatchText = '';
	if (window.__recPatchHooked) return;
	window.__recPatchHooked = true;

	const keep = (t) => {
		try {
			const s = String(t || '');
			if (s) window.__recPatchText = s;
		} catch (e) {}
	};

	try {
		const nc = navigator.clipboard;
		if (nc && typeof nc.writeText === 'function') {
			const orig = nc.writeText.bind(nc);
			nc.writeText = async (text) => {
				keep(text);
				return orig(text);
			};
		}
		if (nc && typeof nc.write === 'function') {
			const origWrite = nc.write.bind(nc);
			nc.write = async (items) => {
				try {
					let combined = '';
					const arr = Array.isArray(items) ? items : [items];
					for (const it of arr) {
						if (it && typeof it.getType === 'function') {
							const blob = await it.getType('text/plain').catch(() => null);
							if (blob && typeof blob.text === 'function') {
								combined += await blob.text();
							}
						}
					}
					if (combined) keep(combined);
				} catch (e) {}
				return origWrite(items);
			};
		}
	} catch (e) {}

	try {
		window.addEventListener('copy', (e) => {
			try {
				const dt = e.clipboardData;
				keep((dt && (dt.getData('text/plain') || dt.getData('text'))) || '');
			} catch (e2) {}
		}, true);
	} catch (e) {}
}`

const readPatchScript = `() => window.__recPatchText || ''`
