package main

import "fmt"

func completionMain(args []string) {
	shell := "bash"
	if len(args) > 0 && args[0] != "" {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	default:
		log.Fatalf("unsupported shell: %s (use bash or zsh)", shell)
	}
}

const bashCompletion = `
_finsight_completions()
{
    local cur
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "exec serve ingest check export config login logout completion version --config --c --log-level --model --resume --last --prompt --export-dir" -- "$cur") )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            ;;
        exec)
            COMPREPLY=( $(compgen -W "--config --model --m --c --session --last --save --json --attach" -- "$cur") )
            ;;
        serve)
            COMPREPLY=( $(compgen -W "--config --addr --c --run-timeout" -- "$cur") )
            ;;
        ingest)
            COMPREPLY=( $(compgen -W "--config --dir --reset --c" -- "$cur") )
            ;;
        check)
            COMPREPLY=( $(compgen -W "--config --no-ping --c --timeout" -- "$cur") )
            ;;
        export)
            COMPREPLY=( $(compgen -W "--session --last --out" -- "$cur") )
            ;;
        config)
            COMPREPLY=( $(compgen -W "path show set" -- "$cur") )
            ;;
        login)
            COMPREPLY=( $(compgen -W "status --with-api-key" -- "$cur") )
            ;;
    esac
}
complete -F _finsight_completions finsight
`

const zshCompletion = `
#compdef finsight
_finsight() {
  local -a subcmds
  subcmds=(
    'exec:ask a single question'
    'serve:run the HTTP chat API'
    'ingest:index research documents'
    'check:verify credentials, market data and index'
    'export:write a session as a text report'
    'config:show or edit ~/.finsight/config.toml'
    'login:store an API key'
    'logout:remove the stored API key'
    'completion:print shell completion'
    'version:print version'
  )
  if (( CURRENT == 2 )); then
    _describe 'command' subcmds
    return
  fi
  case $words[2] in
    completion) _values 'shell' bash zsh ;;
    ingest) _arguments '--dir[documents directory]:dir:_files -/' '--reset[clear collection first]' ;;
    export) _arguments '--session[session id]' '--last[latest session]' '--out[output file]:file:_files' ;;
  esac
}
compdef _finsight finsight
`
