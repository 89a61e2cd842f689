package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_sealstore() {
    local cur prev words cword
    _init_completion || return

    local commands="set get rm ls clear cleanup status compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        set)
            COMPREPLY=($(compgen -W "--config --json --plain --ttl --sync" -- "$cur"))
            ;;
        get|rm)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--config --default --sync" -- "$cur"))
            else
                local keys
                keys=$(sealstore ls 2>/dev/null)
                COMPREPLY=($(compgen -W "$keys" -- "$cur"))
            fi
            ;;
        clear)
            COMPREPLY=($(compgen -W "--config --force" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _sealstore sealstore
`

const zshCompletion = `#compdef sealstore

_sealstore() {
    local -a commands
    commands=(
        'set:Store a value'
        'get:Print a stored value'
        'rm:Remove keys'
        'ls:List stored keys'
        'clear:Remove every key under the prefix'
        'cleanup:Remove expired entries'
        'status:Show storage, encryption and entry state'
        'compact:Reclaim disk space'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'sealstore commands' commands
            ;;
        args)
            case "${words[2]}" in
                set)
                    _arguments \
                        '--json[Parse the value as JSON]' \
                        '--plain[Store without encryption]' \
                        '--ttl[Expire after the given duration]:duration' \
                        '--sync[Use the legacy-only write path]' \
                        '--config[Configuration file]:file:_files'
                    ;;
                get|rm)
                    _arguments '*:key:_sealstore_keys'
                    ;;
                clear)
                    _arguments '--force[Do not ask for confirmation]'
                    ;;
                help)
                    _describe -t commands 'sealstore commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_sealstore_keys() {
    local -a keys
    keys=(${(f)"$(sealstore ls 2>/dev/null)"})
    _describe -t keys 'stored keys' keys
}

_sealstore "$@"
`

const fishCompletion = `# sealstore fish completions

set -l commands set get rm ls clear cleanup status compact help completion

complete -c sealstore -f

# Commands
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a set -d 'Store a value'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print a stored value'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove keys'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List stored keys'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a clear -d 'Remove every key'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a cleanup -d 'Remove expired entries'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Reclaim disk space'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c sealstore -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# set flags
complete -c sealstore -n "__fish_seen_subcommand_from set" -l json -d 'Parse the value as JSON'
complete -c sealstore -n "__fish_seen_subcommand_from set" -l plain -d 'Store without encryption'
complete -c sealstore -n "__fish_seen_subcommand_from set" -l ttl -r -d 'Expire after duration'
complete -c sealstore -n "__fish_seen_subcommand_from set" -l sync -d 'Legacy-only write path'

# keys for get and rm
complete -c sealstore -n "__fish_seen_subcommand_from get rm" -a "(sealstore ls 2>/dev/null)"

# clear flags
complete -c sealstore -n "__fish_seen_subcommand_from clear" -l force -d 'Do not ask'

# help completions
complete -c sealstore -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c sealstore -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
